/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vtflow/executor"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore/cachedstore"
	"vtflow.io/vtflow/go/vt/vtflow/physical"
	"vtflow.io/vtflow/go/vt/vtflow/planbuilder"
	"vtflow.io/vtflow/go/vt/vtflow/planspec"
)

var (
	// Run makes the Run command.
	Run = &cobra.Command{
		Use:   "run --plan <file>",
		Short: "Runs a plan and prints the rows it returns.",
		Long: "Runs a plan on the members named by --members.\n\n" +
			"The maps of the plan document are written to the key-value store first,\n" +
			"unless --seed=false is passed.",
		Example: "vtflow run --plan examples/join.yaml --members m1,m2 --local-parallelism 4",
		Args:    cobra.NoArgs,
		RunE:    commandRun,
	}

	runOptions = struct {
		PlanFile string
		QueryID  string
		Seed     bool
		Timeout  time.Duration
	}{
		Seed: true,
	}
)

func commandRun(cmd *cobra.Command, args []string) error {
	doc, err := planspec.ReadFile(runOptions.PlanFile)
	if err != nil {
		return err
	}
	op, err := doc.Operator()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if runOptions.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runOptions.Timeout)
		defer cancel()
	}

	var stores kvstore.Cluster
	stores, err = kvstore.OpenFromFlags()
	if err != nil {
		return err
	}
	if runOptions.Seed {
		if err := doc.Seed(ctx, stores); err != nil {
			stores.Close()
			return err
		}
	}
	stores = cachedstore.WrapFromFlags(stores)
	defer stores.Close()

	cluster, err := executor.NewClusterFromFlags(stores)
	if err != nil {
		return err
	}
	g, err := planbuilder.Build(&physical.Root{Input: op, QueryID: runOptions.QueryID}, cluster.LocalMember(), connectors())
	if err != nil {
		return err
	}
	cursor, err := cluster.Execute(ctx, g, runOptions.QueryID)
	if err != nil {
		return err
	}
	defer cursor.Close()

	rows, err := cursor.ReadAll(ctx)
	if err != nil {
		return err
	}
	return printRows(cmd, rows)
}

func printRows(cmd *cobra.Command, rows []sqltypes.Row) error {
	out := cmd.OutOrStdout()
	arity := 0
	for _, r := range rows {
		arity = max(arity, r.Arity())
	}
	if arity > 0 {
		table := tablewriter.NewWriter(out)
		header := make([]any, arity)
		for i := range header {
			header[i] = "$" + strconv.Itoa(i)
		}
		table.Header(header...)
		for _, r := range rows {
			cells := make([]string, arity)
			for i := range cells {
				cells[i] = "NULL"
				if i < len(r) && r[i] != nil {
					cells[i] = fmt.Sprint(r[i])
				}
			}
			if err := table.Append(cells); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "%d rows\n", len(rows))
	return nil
}

func init() {
	Run.Flags().StringVarP(&runOptions.PlanFile, "plan", "f", "", "path of the plan document")
	Run.Flags().StringVar(&runOptions.QueryID, "query-id", "", "ID of the query, generated when empty")
	Run.Flags().BoolVar(&runOptions.Seed, "seed", runOptions.Seed, "write the maps of the plan document to the store before running")
	Run.Flags().DurationVar(&runOptions.Timeout, "timeout", 0, "cancel the query after this long, 0 waits forever")
	Run.MarkFlagRequired("plan")
	Root.AddCommand(Run)
}
