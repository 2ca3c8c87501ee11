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

// Package connector defines how tables plug into the dataflow compiler: a
// Connector creates the reader, writer and lookup vertices of the tables it
// serves.
package connector

import (
	"fmt"
	"sort"
	"sync"

	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
	"vtflow.io/vtflow/go/vt/vtflow/physical"
)

// Connector builds the vertices that access the tables of one connector type.
type Connector interface {
	// TypeName is the value of physical.Table.Connector served by this connector.
	TypeName() string

	// FullScanReader adds a source vertex emitting every row of table that
	// passes filter, projected by projection. Both are expressed over the
	// table fields.
	FullScanReader(g *dag.Graph, table *physical.Table, filter evalengine.Expr, projection []evalengine.Expr) (*dag.Vertex, error)

	// Sink adds a vertex writing its input rows into table.
	Sink(g *dag.Graph, table *physical.Table) (*dag.Vertex, error)

	// NestedLoopReader adds a vertex joining every input row with the rows of
	// table, filtered and projected like FullScanReader.
	NestedLoopReader(g *dag.Graph, table *physical.Table, filter evalengine.Expr, projection []evalengine.Expr, join physical.JoinInfo) (NestedLoopJoin, error)
}

// NestedLoopJoin is the join vertex returned by a connector along with the
// configuration of the edge feeding it the left rows.
type NestedLoopJoin struct {
	Vertex *dag.Vertex
	// ConfigureEdge, when set, is applied to the edge from the left input.
	ConfigureEdge func(e *dag.Edge)
}

// Resolver finds the connector serving a table.
type Resolver interface {
	Connector(table *physical.Table) (Connector, error)
}

// Registry is a Resolver holding connectors by type name.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

// NewRegistry returns a registry holding the given connectors.
func NewRegistry(connectors ...Connector) *Registry {
	r := &Registry{connectors: make(map[string]Connector)}
	for _, c := range connectors {
		r.Register(c)
	}
	return r
}

// Register adds a connector. It panics when its type name is already taken.
func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.TypeName()
	if _, ok := r.connectors[name]; ok {
		panic(fmt.Sprintf("duplicate connector registration for %v", name))
	}
	r.connectors[name] = c
}

// Connector implements Resolver.
func (r *Registry) Connector(table *physical.Table) (Connector, error) {
	if table == nil {
		return nil, vterrors.VT13001("table without metadata")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[table.Connector]
	if !ok {
		return nil, vterrors.Errorf(codes.NotFound, "no connector %q for table %s, registered: %v", table.Connector, table.Name, r.typeNames())
	}
	return c, nil
}

// TypeNames returns the registered connector types, sorted.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typeNames()
}

func (r *Registry) typeNames() []string {
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
