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

package executor

import (
	"context"
	"io"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/test/utils"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/aggregation"
	"vtflow.io/vtflow/go/vt/vtflow/connector"
	"vtflow.io/vtflow/go/vt/vtflow/connector/mapconnector"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
	"vtflow.io/vtflow/go/vt/vtflow/engine"
	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
	"vtflow.io/vtflow/go/vt/vtflow/extract"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore/memorystore"
	"vtflow.io/vtflow/go/vt/vtflow/physical"
	"vtflow.io/vtflow/go/vt/vtflow/planbuilder"
)

var (
	ordersTable = &physical.Table{
		Name:      "orders",
		Connector: mapconnector.TypeName,
		MapName:   "orders",
		Fields: []physical.TableField{
			{Name: "id", Path: extract.KeyPath(extract.ThisPath), Type: extract.IntegerType},
			{Name: "user", Path: extract.ValuePath("user"), Type: extract.IntegerType},
			{Name: "amount", Path: extract.ValuePath("amount"), Type: extract.IntegerType},
		},
		ValueDescriptor: extract.MapDescriptor{},
	}
	usersTable = &physical.Table{
		Name:      "users",
		Connector: mapconnector.TypeName,
		MapName:   "users",
		Fields: []physical.TableField{
			{Name: "id", Path: extract.KeyPath(extract.ThisPath), Type: extract.IntegerType},
			{Name: "name", Path: extract.ValuePath(extract.ThisPath), Type: extract.VarcharType},
		},
	}
)

type fixture struct {
	cluster *Cluster
	stores  *memorystore.Cluster
}

func newFixture(t *testing.T, memberNames ...string) *fixture {
	t.Helper()
	if len(memberNames) == 0 {
		memberNames = []string{"m1", "m2"}
	}
	stores := memorystore.NewCluster()
	ctx := context.Background()
	users := stores.Store("users")
	require.NoError(t, users.Put(ctx, 1, "ann"))
	require.NoError(t, users.Put(ctx, 2, "bob"))
	require.NoError(t, users.Put(ctx, 3, "cid"))
	orders := stores.Store("orders")
	for id := 1; id <= 12; id++ {
		user := id%3 + 1
		if id == 12 {
			user = 9
		}
		require.NoError(t, orders.Put(ctx, id, map[string]any{"user": user, "amount": id * 10}))
	}

	cluster, err := NewCluster(memberNames, "", 2, stores)
	require.NoError(t, err)
	return &fixture{cluster: cluster, stores: stores}
}

func (f *fixture) run(t *testing.T, ctx context.Context, plan physical.Operator) ([]sqltypes.Row, error) {
	t.Helper()
	g, err := planbuilder.Build(&physical.Root{Input: plan}, f.cluster.LocalMember(), connector.NewRegistry(mapconnector.New()))
	require.NoError(t, err)
	cursor, err := f.cluster.Execute(ctx, g, "")
	require.NoError(t, err)
	defer cursor.Close()
	return cursor.ReadAll(ctx)
}

func TestExecuteLocalChain(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	f := newFixture(t)
	plan := &physical.Project{
		Input: &physical.Filter{
			Input:     &physical.Values{Rows: []sqltypes.Row{sqltypes.MakeRow(1, "a"), sqltypes.MakeRow(2, "b")}},
			Predicate: evalengine.NewComparisonExpr(evalengine.GreaterThanOp, evalengine.NewColumn(0), evalengine.NewLiteral(1)),
		},
		Projection: []evalengine.Expr{evalengine.NewColumn(1)},
	}
	rows, err := f.run(t, ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, []sqltypes.Row{sqltypes.MakeRow("b")}, rows)
}

func TestExecuteAggregations(t *testing.T) {
	byUser := aggregation.Operation{
		GroupColumns: []int{1},
		Aggregates: []aggregation.Aggregate{
			{Func: aggregation.CountStar},
			{Func: aggregation.Sum, Column: 2},
		},
	}
	total := aggregation.Operation{
		Aggregates: []aggregation.Aggregate{
			{Func: aggregation.CountStar},
			{Func: aggregation.Max, Column: 2},
		},
	}
	scan := &physical.FullScan{Table: ordersTable}
	// ids 3, 6, 9 belong to user 1; 1, 4, 7, 10 to user 2; 2, 5, 8, 11 to user 3
	grouped := []sqltypes.Row{
		sqltypes.MakeRow(1, 3, 180),
		sqltypes.MakeRow(2, 4, 220),
		sqltypes.MakeRow(3, 4, 260),
		sqltypes.MakeRow(9, 1, 120),
	}

	tcases := []struct {
		name string
		plan physical.Operator
		want []sqltypes.Row
	}{
		{
			name: "single instance",
			plan: &physical.Aggregate{Input: scan, Aggregation: byUser},
			want: grouped,
		},
		{
			name: "by key",
			plan: &physical.AggregateByKey{Input: scan, Aggregation: byUser},
			want: grouped,
		},
		{
			name: "two stages",
			plan: &physical.Combine{Input: &physical.Accumulate{Input: scan, Aggregation: byUser}, Aggregation: byUser},
			want: grouped,
		},
		{
			name: "two stages by key",
			plan: &physical.CombineByKey{Input: &physical.AccumulateByKey{Input: scan, Aggregation: byUser}, Aggregation: byUser},
			want: grouped,
		},
		{
			name: "global",
			plan: &physical.Combine{Input: &physical.Accumulate{Input: scan, Aggregation: total}, Aggregation: total},
			want: []sqltypes.Row{sqltypes.MakeRow(12, 120)},
		},
		{
			name: "global over nothing",
			plan: &physical.Aggregate{Input: &physical.FullScan{Table: ordersTable, Filter: evalengine.NewLiteral(false)}, Aggregation: total},
			want: []sqltypes.Row{sqltypes.MakeRow(0, nil)},
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := utils.LeakCheckContext(t)
			rows, err := newFixture(t).run(t, ctx, tc.plan)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.want, rows)
		})
	}
}

func TestExecuteJoin(t *testing.T) {
	plan := func(inner bool) physical.Operator {
		return &physical.Project{
			Input: &physical.NestedLoopJoin{
				Left:  &physical.FullScan{Table: ordersTable, Filter: evalengine.NewComparisonExpr(evalengine.LessEqualOp, evalengine.NewColumn(0), evalengine.NewLiteral(3))},
				Right: &physical.FullScan{Table: usersTable, Projection: []evalengine.Expr{evalengine.NewColumn(1)}},
				Join:  physical.JoinInfo{Inner: inner, LeftEquiJoinIndex: 1},
			},
			Projection: []evalengine.Expr{evalengine.NewColumn(0), evalengine.NewColumn(3)},
		}
	}
	tcases := []struct {
		name    string
		inner   bool
		members []string
	}{
		{name: "one member", inner: true, members: []string{"m1"}},
		{name: "three members", inner: true, members: []string{"m1", "m2", "m3"}},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := utils.LeakCheckContext(t)
			rows, err := newFixture(t, tc.members...).run(t, ctx, plan(tc.inner))
			require.NoError(t, err)
			assert.ElementsMatch(t, []sqltypes.Row{
				sqltypes.MakeRow(1, "bob"),
				sqltypes.MakeRow(2, "cid"),
				sqltypes.MakeRow(3, "ann"),
			}, rows)
		})
	}

	t.Run("outer join miss", func(t *testing.T) {
		ctx := utils.LeakCheckContext(t)
		f := newFixture(t)
		outer := &physical.NestedLoopJoin{
			Left:  &physical.FullScan{Table: ordersTable, Filter: evalengine.NewComparisonExpr(evalengine.EqualOp, evalengine.NewColumn(0), evalengine.NewLiteral(12))},
			Right: &physical.FullScan{Table: usersTable},
			Join:  physical.JoinInfo{LeftEquiJoinIndex: 1},
		}
		rows, err := f.run(t, ctx, outer)
		require.NoError(t, err)
		assert.Equal(t, []sqltypes.Row{sqltypes.MakeRow(12, 9, 120, nil, nil)}, rows)
	})
}

func TestExecuteInsert(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	f := newFixture(t)
	plan := &physical.Insert{
		Input: &physical.Values{Rows: []sqltypes.Row{sqltypes.MakeRow(4, "dan"), sqltypes.MakeRow(5, "eve")}},
		Table: usersTable,
	}
	rows, err := f.run(t, ctx, plan)
	require.NoError(t, err)
	assert.Empty(t, rows)

	users := f.stores.Store("users")
	assert.Equal(t, 5, users.Len())
	v, err := users.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "eve", v)
}

func TestExecuteFailure(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	f := newFixture(t)
	before := queryErrors.Get()
	plan := &physical.Project{
		Input:      &physical.FullScan{Table: ordersTable},
		Projection: []evalengine.Expr{evalengine.NewArithmeticExpr(evalengine.DivOp, evalengine.NewColumn(2), evalengine.NewLiteral(0))},
	}
	_, err := f.run(t, ctx, plan)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))
	assert.Equal(t, vterrors.EvaluationFailed, vterrors.ErrState(err))
	assert.Equal(t, before+1, queryErrors.Get())
}

// endless returns a source vertex emitting rows until the query stops.
func endless(g *dag.Graph) *dag.Vertex {
	return g.NewUniqueVertex("Endless", "Values", dag.SourceFunc(func(*dag.ProcessorContext) (dag.Processor, error) {
		return dag.ProcessorFunc(func(ctx context.Context, _ <-chan sqltypes.Row, emit dag.Emitter) error {
			for i := 0; ; i++ {
				if err := emit(ctx, sqltypes.MakeRow(i)); err != nil {
					return err
				}
			}
		}), nil
	}), dag.ParallelPlacement())
}

func endlessGraph(t *testing.T, member string) *dag.Graph {
	t.Helper()
	g := dag.NewGraph()
	source := endless(g)
	sink := g.NewUniqueVertex("ClientSink", "Root", &engine.ClientSinkSupplier{}, dag.SingleInstanceOn(member))
	require.NoError(t, g.AddEdge(dag.Between(source, sink).AllToOne(member)))
	return g
}

func TestExecuteCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(utils.LeakCheckContext(t))
	defer cancel()
	f := newFixture(t)

	cursor, err := f.cluster.Execute(ctx, endlessGraph(t, "m1"), "endless")
	require.NoError(t, err)
	_, err = cursor.Next(ctx)
	require.NoError(t, err)
	cancel()

	for {
		_, err = cursor.Next(context.Background())
		if err != nil {
			break
		}
	}
	assert.Equal(t, vterrors.QueryInterrupted, vterrors.ErrState(err))
	assert.Equal(t, codes.Canceled, vterrors.Code(err))
	require.NoError(t, cursor.Close())

	_, ok := f.cluster.ResultConsumer("endless")
	assert.False(t, ok)
}

func TestCursorClose(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	f := newFixture(t)

	cursor, err := f.cluster.Execute(ctx, endlessGraph(t, "m1"), "")
	require.NoError(t, err)
	assert.NotEmpty(t, cursor.QueryID())
	_, err = cursor.Next(ctx)
	require.NoError(t, err)

	require.NoError(t, cursor.Close())
	require.NoError(t, cursor.Close())
	<-cursor.Done()
	assert.Equal(t, vterrors.QueryInterrupted, vterrors.ErrState(cursor.Err()))
}

func TestCursorIteratesOnce(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	f := newFixture(t)
	rows := []sqltypes.Row{sqltypes.MakeRow(1), sqltypes.MakeRow(2)}
	g, err := planbuilder.Build(&physical.Root{Input: &physical.Values{Rows: rows}}, "m1", connector.NewRegistry())
	require.NoError(t, err)

	cursor, err := f.cluster.Execute(ctx, g, "")
	require.NoError(t, err)
	defer cursor.Close()

	seq, err := cursor.Rows(ctx)
	require.NoError(t, err)
	var got []sqltypes.Row
	for row, err := range seq {
		require.NoError(t, err)
		got = append(got, row)
	}
	assert.Equal(t, rows, got)

	_, err = cursor.Rows(ctx)
	assert.Equal(t, codes.FailedPrecondition, vterrors.Code(err))
	_, err = cursor.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestExecuteRejects(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	f := newFixture(t)

	_, err := f.cluster.Execute(ctx, dag.NewGraph(), "")
	assert.Equal(t, codes.Internal, vterrors.Code(err))

	// single-instance vertex on a member outside the cluster
	_, err = f.cluster.Execute(ctx, endlessGraph(t, "m9"), "")
	assert.Equal(t, codes.Internal, vterrors.Code(err))

	cursor, err := f.cluster.Execute(ctx, endlessGraph(t, "m1"), "q1")
	require.NoError(t, err)
	defer cursor.Close()
	_, err = f.cluster.Execute(ctx, endlessGraph(t, "m1"), "q1")
	assert.Equal(t, codes.AlreadyExists, vterrors.Code(err))
}

func TestNewCluster(t *testing.T) {
	stores := memorystore.NewCluster()
	tcases := []struct {
		name        string
		members     []string
		local       string
		parallelism int
		err         string
	}{
		{name: "no members", parallelism: 1, err: "at least one member"},
		{name: "empty member", members: []string{""}, parallelism: 1, err: "empty member"},
		{name: "duplicate member", members: []string{"a", "a"}, parallelism: 1, err: "duplicate member a"},
		{name: "unknown local member", members: []string{"a"}, local: "b", parallelism: 1, err: "local member b"},
		{name: "no parallelism", members: []string{"a"}, err: "must be positive"},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCluster(tc.members, tc.local, tc.parallelism, stores)
			assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))
			assert.ErrorContains(t, err, tc.err)
		})
	}

	c, err := NewCluster([]string{"a", "b"}, "", 3, stores)
	require.NoError(t, err)
	assert.Equal(t, "a", c.LocalMember())
	assert.Equal(t, []string{"a", "b"}, c.Members())
	assert.Equal(t, 3, c.LocalParallelism())
	assert.Same(t, stores, c.Stores())
}

func TestClusterFlags(t *testing.T) {
	defer func(p int, m []string, l string) {
		localParallelism, members, localMember = p, m, l
	}(localParallelism, members, localMember)

	fs := pflag.NewFlagSet("vtflow", pflag.ContinueOnError)
	registerFlags(fs)
	require.NoError(t, fs.Parse([]string{"--members", "x,y,z", "--local-member", "y", "--local-parallelism", "4"}))

	c, err := NewClusterFromFlags(memorystore.NewCluster())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, c.Members())
	assert.Equal(t, "y", c.LocalMember())
	assert.Equal(t, 4, c.LocalParallelism())
}
