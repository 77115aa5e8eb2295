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
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/openziti/resourcestore/kernel/loader"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/openziti/resourcestore/kernel/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	RootCmd.AddCommand(NewFetchCommand())
}

func NewFetchCommand() *cobra.Command {
	fetchCmd := &FetchCommand{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch records of a resource type into the store and print them",
		RunE:  fetchCmd.fetch,
	}

	cmd.Flags().StringVarP(&fetchCmd.ConfigPath, "config", "c", "", "path to YAML configuration file")
	cmd.Flags().StringVarP(&fetchCmd.ResourceType, "type", "t", "", "resource type to fetch")
	cmd.Flags().StringSliceVarP(&fetchCmd.Ids, "id", "i", nil, "record id to fetch (repeatable)")
	cmd.Flags().BoolVar(&fetchCmd.All, "all", false, "fetch every record of the type")
	cmd.Flags().StringVarP(&fetchCmd.Output, "output", "o", "auto", "output format (auto, table, json)")
	cmd.Flags().DurationVar(&fetchCmd.Timeout, "timeout", 30*time.Second, "overall fetch timeout")
	cmd.Flags().BoolVar(&fetchCmd.DryRun, "dry-run", false, "show the urls that would be fetched without fetching")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("type")

	return cmd
}

type FetchCommand struct {
	ConfigPath   string
	ResourceType string
	Ids          []string
	All          bool
	Output       string
	Timeout      time.Duration
	DryRun       bool
}

func (f *FetchCommand) fetch(cmd *cobra.Command, args []string) error {
	if !f.All && len(f.Ids) == 0 {
		return errors.New("either --id or --all is required")
	}
	output, err := f.outputFormat()
	if err != nil {
		return err
	}

	config, err := loader.LoadConfig(f.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	m, err := config.Module()
	if err != nil {
		return fmt.Errorf("failed to build resources: %w", err)
	}
	resourceType := model.ResourceType(f.ResourceType)
	rc, err := m.ConfigFor(resourceType)
	if err != nil {
		return err
	}

	if f.DryRun {
		logrus.Infof("dry-run: resource type '%s'", resourceType)
		if f.All {
			logrus.Infof("  GET %s", rc.BuildURL(model.FindAll, resourceType, ""))
		}
		for _, id := range f.Ids {
			logrus.Infof("  GET %s", rc.BuildURL(model.FindRecord, resourceType, model.ResourceId(id)))
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), f.Timeout)
	defer cancel()

	st := m.NewStore(ctx)
	defer st.Close()

	var mu sync.Mutex
	var failed []error
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, err)
	}

	var wg conc.WaitGroup
	if f.All {
		wg.Go(func() {
			if _, err := m.FetchAll(ctx, st, resourceType); err != nil {
				logrus.WithError(err).Warnf("failed to fetch all of '%s'", resourceType)
				fail(err)
			}
		})
	}
	for _, id := range f.Ids {
		id := model.ResourceId(id)
		wg.Go(func() {
			if _, err := m.Fetch(ctx, st, resourceType, id); err != nil {
				logrus.WithError(err).Warnf("failed to fetch %s/%s", resourceType, id)
				fail(err)
			}
		})
	}
	wg.Wait()

	ts, _ := st.GetState().TypeState(resourceType)
	if err := render(cmd.OutOrStdout(), output, resourceType, ts); err != nil {
		return err
	}

	if len(failed) > 0 {
		return errors.Errorf("%d fetch(es) failed, first: %v", len(failed), failed[0])
	}
	return nil
}

func (f *FetchCommand) outputFormat() (string, error) {
	switch f.Output {
	case "table", "json":
		return f.Output, nil
	case "auto", "":
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return "table", nil
		}
		return "json", nil
	default:
		return "", errors.Errorf("invalid output format '%s': must be one of auto, table, json", f.Output)
	}
}

func render(w io.Writer, output string, resourceType model.ResourceType, ts store.TypeState) error {
	if output == "json" {
		data, err := json.MarshalIndent(ts, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	ids := make(map[model.ResourceId]struct{}, len(ts.Records)+len(ts.RecordStatus))
	for id := range ts.Records {
		ids[id] = struct{}{}
	}
	for id := range ts.RecordStatus {
		ids[id] = struct{}{}
	}
	sorted := make([]model.ResourceId, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Type", "Id", "Status", "Attributes"})
	for _, id := range sorted {
		attrs := ""
		if a, ok := ts.Records[id]; ok {
			data, err := json.Marshal(a)
			if err != nil {
				return err
			}
			attrs = string(data)
		}
		status := string(ts.RecordStatus[id])
		if status == "" {
			status = "-"
		}
		t.AppendRow(table.Row{resourceType, id, status, attrs})
	}
	t.Render()
	return nil
}
