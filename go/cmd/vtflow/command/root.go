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

// Package command contains the cobra commands of the vtflow binary.
package command

import (
	goflag "flag"

	"github.com/spf13/cobra"

	"vtflow.io/vtflow/go/vt/log"
	"vtflow.io/vtflow/go/vt/servenv"
	"vtflow.io/vtflow/go/vt/vtflow/connector"
	"vtflow.io/vtflow/go/vt/vtflow/connector/mapconnector"

	// kvstore implementations selectable with --store-implementation
	_ "vtflow.io/vtflow/go/vt/vtflow/kvstore/consulstore"
	_ "vtflow.io/vtflow/go/vt/vtflow/kvstore/etcdstore"
	_ "vtflow.io/vtflow/go/vt/vtflow/kvstore/memorystore"
)

// Root is the vtflow command. Every flag registered for "vtflow" through
// servenv is a persistent flag of Root.
var Root = &cobra.Command{
	Use:   "vtflow",
	Short: "vtflow compiles physical query plans into dataflow graphs and runs them.",
	Long: "`vtflow` reads a plan document (tables, seed entries and a physical operator tree),\n" +
		"compiles the plan into a dataflow graph and either prints the graph or runs it\n" +
		"on the members named by --members.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return servenv.LoadConfig(cmd.Flags())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Flush()
	},
}

func init() {
	servenv.RegisterFlags("vtflow", Root.PersistentFlags())
	// glog registers its flags on the standard library flag set
	Root.PersistentFlags().AddGoFlagSet(goflag.CommandLine)
}

// connectors returns the connectors tables can be served by.
func connectors() *connector.Registry {
	return connector.NewRegistry(mapconnector.New())
}
