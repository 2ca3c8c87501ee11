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

package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
	"vtflow.io/vtflow/go/vt/vtflow/physical"
)

type fakeConnector struct {
	name string
}

func (f *fakeConnector) TypeName() string { return f.name }

func (f *fakeConnector) FullScanReader(g *dag.Graph, table *physical.Table, _ evalengine.Expr, _ []evalengine.Expr) (*dag.Vertex, error) {
	return g.NewUniqueVertex(table.Name, "FullScan", nil, dag.ParallelPlacement()), nil
}

func (f *fakeConnector) Sink(g *dag.Graph, table *physical.Table) (*dag.Vertex, error) {
	return g.NewUniqueVertex(table.Name, "Insert", nil, dag.ParallelPlacement()), nil
}

func (f *fakeConnector) NestedLoopReader(g *dag.Graph, table *physical.Table, _ evalengine.Expr, _ []evalengine.Expr, _ physical.JoinInfo) (NestedLoopJoin, error) {
	return NestedLoopJoin{Vertex: g.NewUniqueVertex(table.Name, "NestedLoopJoin", nil, dag.ParallelPlacement())}, nil
}

func TestRegistry(t *testing.T) {
	maps := &fakeConnector{name: "map"}
	files := &fakeConnector{name: "file"}
	r := NewRegistry(maps, files)
	assert.Equal(t, []string{"file", "map"}, r.TypeNames())

	c, err := r.Connector(&physical.Table{Name: "t", Connector: "map"})
	require.NoError(t, err)
	assert.Same(t, maps, c)

	_, err = r.Connector(&physical.Table{Name: "t", Connector: "kafka"})
	assert.Equal(t, codes.NotFound, vterrors.Code(err))
	assert.ErrorContains(t, err, "[file map]")

	_, err = r.Connector(nil)
	assert.Equal(t, codes.Internal, vterrors.Code(err))

	assert.Panics(t, func() { r.Register(&fakeConnector{name: "map"}) })
}
