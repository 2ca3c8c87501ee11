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

package evalengine

import (
	"vtflow.io/vtflow/go/sqltypes"
)

// EvaluateBool evaluates a predicate. Only a boolean TRUE passes: FALSE and
// NULL both report false.
func EvaluateBool(e Expr, env Env) (bool, error) {
	if e == nil {
		return true, nil
	}
	v, err := e.Eval(env)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	return ok && b, nil
}

// FilterFn returns the row test of a Filter operator. A nil predicate accepts every row.
func FilterFn(predicate Expr) func(row sqltypes.Row) (bool, error) {
	if predicate == nil {
		return func(sqltypes.Row) (bool, error) { return true, nil }
	}
	return func(row sqltypes.Row) (bool, error) {
		return EvaluateBool(predicate, RowEnv(row))
	}
}

// ProjectionFn returns the row mapping of a Project operator.
func ProjectionFn(projection []Expr) func(row sqltypes.Row) (sqltypes.Row, error) {
	return func(row sqltypes.Row) (sqltypes.Row, error) {
		return Project(projection, RowEnv(row))
	}
}

// Project evaluates every expression against env, in order.
func Project(projection []Expr, env Env) (sqltypes.Row, error) {
	out := make(sqltypes.Row, len(projection))
	for i, e := range projection {
		v, err := e.Eval(env)
		if err != nil {
			return nil, err
		}
		out[i] = sqltypes.Normalize(v)
	}
	return out, nil
}

// JoinFn returns the function combining a left and a right row: the rows are
// concatenated and the condition is evaluated over the result. A nil result
// means the pair does not match.
func JoinFn(condition Expr) func(left, right sqltypes.Row) (sqltypes.Row, error) {
	return func(left, right sqltypes.Row) (sqltypes.Row, error) {
		joined := sqltypes.Concat(left, right)
		ok, err := EvaluateBool(condition, RowEnv(joined))
		if err != nil || !ok {
			return nil, err
		}
		return joined, nil
	}
}

// FormatExprs prints a list of expressions separated by commas.
func FormatExprs(exprs []Expr) string {
	s := ""
	for i, e := range exprs {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s
}
