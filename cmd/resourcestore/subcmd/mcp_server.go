/*
	(c) Copyright NetFoundry Inc. Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package subcmd

import (
	"fmt"

	"github.com/openziti/resourcestore/kernel/engine"
	"github.com/openziti/resourcestore/kernel/loader"
	"github.com/openziti/resourcestore/kernel/mcp"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewServeCommand())
}

func NewServeCommand() *cobra.Command {
	serveCmd := &ServeCommand{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start an MCP server over the resource store",
		Long: `Start an MCP (Model Context Protocol) server on stdio that exposes
the configured resources to AI assistants.

The server provides tools for:
  - list_resource_types: List the configured resource types
  - find_record: Fetch one record and store it
  - find_all: Fetch every record of a type and store them
  - get_records: Return stored records and statuses without fetching

And resources:
  - resourcestore://snapshot: Current snapshot of every resource type`,
		RunE: serveCmd.run,
	}

	cmd.Flags().StringVarP(&serveCmd.ConfigPath, "config", "c", "", "path to YAML configuration file")
	cmd.MarkFlagRequired("config")

	return cmd
}

type ServeCommand struct {
	ConfigPath string
}

func (s *ServeCommand) run(cmd *cobra.Command, args []string) error {
	config, err := loader.LoadConfig(s.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	m, err := config.Module()
	if err != nil {
		return fmt.Errorf("failed to build resources: %w", err)
	}

	st := m.NewStore(cmd.Context(), engine.WithTaskFailure(func(action model.Action, err error) {
		logrus.WithError(err).Errorf("task for %s %s failed", action.Type, action.ResourceType)
	}))
	defer st.Close()

	logrus.Infof("starting MCP server on stdio for %d resource type(s)...", len(m.Types()))
	server := mcp.NewResourceMCPServer(m, st)
	return server.ServeStdio()
}
