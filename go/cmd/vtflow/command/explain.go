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
	"fmt"

	"github.com/spf13/cobra"

	"vtflow.io/vtflow/go/vt/vtflow/executor"
	"vtflow.io/vtflow/go/vt/vtflow/physical"
	"vtflow.io/vtflow/go/vt/vtflow/planbuilder"
	"vtflow.io/vtflow/go/vt/vtflow/planspec"
)

var (
	// Explain makes the Explain command.
	Explain = &cobra.Command{
		Use:     "explain --plan <file>",
		Short:   "Prints a physical plan and the dataflow graph it compiles to.",
		Example: "vtflow explain --plan examples/join.yaml --members m1,m2",
		Args:    cobra.NoArgs,
		RunE:    commandExplain,
	}

	explainOptions = struct {
		PlanFile string
	}{}
)

func commandExplain(cmd *cobra.Command, args []string) error {
	doc, err := planspec.ReadFile(explainOptions.PlanFile)
	if err != nil {
		return err
	}
	op, err := doc.Operator()
	if err != nil {
		return err
	}
	// compiling only needs the member layout
	cluster, err := executor.NewClusterFromFlags(nil)
	if err != nil {
		return err
	}
	g, err := planbuilder.Build(&physical.Root{Input: op}, cluster.LocalMember(), connectors())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Physical plan:\n%s\n", physical.ToTree(op))
	fmt.Fprintf(out, "Dataflow graph on %v (parallelism %d):\n", cluster.Members(), cluster.LocalParallelism())
	return g.Describe(out)
}

func init() {
	Explain.Flags().StringVarP(&explainOptions.PlanFile, "plan", "f", "", "path of the plan document")
	Explain.MarkFlagRequired("plan")
	Root.AddCommand(Explain)
}
