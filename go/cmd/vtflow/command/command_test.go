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
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vtflow.io/vtflow/go/test/utils"
)

const joinPlan = `
tables:
- name: users
  fields:
  - {name: id, path: __key, type: BIGINT}
  - {name: name, path: __value, type: VARCHAR}
maps:
  users:
  - {key: 1, value: ann}
  - {key: 2, value: bob}
plan:
  op: join
  inner: true
  leftKey: 0
  left: {op: values, rows: [[1, 10], [2, 20], [3, 30]]}
  right: {op: scan, table: users}
`

func writePlan(t *testing.T, plan string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(plan), 0o644))
	return path
}

// execute runs Root with args. Slice flags append to the values of earlier
// runs, so --members is cleared first and passed by every test. Cobra only
// hands the root context to subcommands that have none, so every subcommand
// gets ctx explicitly.
func execute(ctx context.Context, args ...string) (string, error) {
	if f := Root.PersistentFlags().Lookup("members"); f != nil {
		_ = f.Value.(pflag.SliceValue).Replace(nil)
	}
	for _, cmd := range Root.Commands() {
		cmd.SetContext(ctx)
	}
	var out bytes.Buffer
	Root.SetOut(&out)
	Root.SetErr(io.Discard)
	Root.SetArgs(args)
	err := Root.ExecuteContext(ctx)
	return out.String(), err
}

func TestExplain(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	path := writePlan(t, joinPlan)

	out, err := execute(ctx, "explain", "--plan", path, "--members", "m1,m2", "--local-member", "m2")
	require.NoError(t, err)
	assert.Contains(t, out, "Physical plan:")
	assert.Contains(t, out, "NestedLoopJoin")
	assert.Contains(t, out, "Join(users)")
	assert.Contains(t, out, "ClientSink")
	assert.Contains(t, out, "[m1 m2]")
}

func TestRun(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	path := writePlan(t, joinPlan)

	out, err := execute(ctx, "run", "-f", path, "--members", "m1", "--local-member", "", "--store-implementation", "memory", "--seed", "--store-cache-ttl", "1m")
	require.NoError(t, err)
	assert.Contains(t, out, "ann")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "2 rows")

	// nothing was seeded: the join finds no users
	out, err = execute(ctx, "run", "-f", path, "--members", "m1", "--seed=false", "--store-cache-ttl", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "0 rows")
}

func TestRunErrors(t *testing.T) {
	ctx := utils.LeakCheckContext(t)

	_, err := execute(ctx, "run", "--plan", filepath.Join(t.TempDir(), "missing.yaml"), "--members", "m1")
	require.Error(t, err)

	path := writePlan(t, "plan: {op: sort, input: {op: values}}")
	_, err = execute(ctx, "run", "--plan", path, "--members", "m1")
	require.ErrorContains(t, err, "unknown operator")

	path = writePlan(t, "plan: {op: values, rows: [[1, 0]]}")
	_, err = execute(ctx, "run", "--plan", path, "--members", "m1,m1")
	require.ErrorContains(t, err, "duplicate member")

	path = writePlan(t, "plan: {op: project, projection: [{op: div, args: [{col: 0}, {col: 1}]}], input: {op: values, rows: [[1, 0]]}}")
	_, err = execute(ctx, "run", "--plan", path, "--members", "m1")
	require.ErrorContains(t, err, "division by zero")

	_, err = execute(ctx, "explain", "--plan", filepath.Join(t.TempDir(), "missing.yaml"), "--members", "m1")
	require.Error(t, err)
}

func TestRunUsesCallerContext(t *testing.T) {
	path := writePlan(t, "plan: {op: project, projection: [{op: div, args: [{col: 0}, {col: 1}]}], input: {op: values, rows: [[1, 0]]}}")

	first, cancel := context.WithCancel(utils.LeakCheckContext(t))
	_, err := execute(first, "run", "--plan", path, "--members", "m1")
	require.ErrorContains(t, err, "division by zero")
	cancel()

	second := utils.LeakCheckContext(t)
	_, err = execute(second, "run", "--plan", path, "--members", "m1")
	require.ErrorContains(t, err, "division by zero")
	assert.Equal(t, second, Run.Context())
}
