package main

import (
	"os"

	"github.com/openziti/resourcestore/cmd/resourcestore/subcmd"
)

func main() {
	if err := subcmd.Execute(); err != nil {
		os.Exit(1)
	}
}
