package subcmd

import (
	"fmt"
	"os"

	"github.com/openziti/resourcestore/kernel/loader"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewValidateCommand())
}

func NewValidateCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a YAML resource configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			result, err := loader.ValidateConfigBytes(data)
			if err != nil {
				return fmt.Errorf("failed to parse config: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			for _, e := range result.Errors {
				fmt.Fprintf(out, "error: %s\n", e.Error())
			}
			if !result.IsValid() {
				return errors.Errorf("%s: %d error(s)", configPath, len(result.Errors))
			}
			fmt.Fprintf(out, "%s: ok\n", configPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file")
	cmd.MarkFlagRequired("config")

	return cmd
}
