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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
)

func col(i int) Expr  { return NewColumn(i) }
func lit(v any) Expr  { return NewLiteral(v) }
func null() Expr      { return NewLiteralNull() }
func not(e Expr) Expr { return &NotExpr{Inner: e} }

func TestComparison(t *testing.T) {
	row := RowEnv(sqltypes.MakeRow(1, "b", nil, 2.5))
	tcases := []struct {
		expr Expr
		want any
	}{
		{NewComparisonExpr(GreaterThanOp, col(0), lit(1)), false},
		{NewComparisonExpr(GreaterEqualOp, col(0), lit(1)), true},
		{NewComparisonExpr(EqualOp, col(1), lit("b")), true},
		{NewComparisonExpr(LessThanOp, col(1), lit("a")), false},
		{NewComparisonExpr(NotEqualOp, col(0), col(3)), true},
		{NewComparisonExpr(LessThanOp, col(0), col(3)), true},
		{NewComparisonExpr(EqualOp, col(0), lit(1.0)), true},
		{NewComparisonExpr(EqualOp, col(2), lit(1)), nil},
		{NewComparisonExpr(EqualOp, null(), null()), nil},
		{NewComparisonExpr(EqualOp, lit(true), lit(false)), false},
	}
	for _, tc := range tcases {
		t.Run(tc.expr.String(), func(t *testing.T) {
			got, err := tc.expr.Eval(row)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComparisonTypeMismatch(t *testing.T) {
	_, err := NewComparisonExpr(EqualOp, lit(1), lit("a")).Eval(RowEnv(nil))
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))
	assert.Equal(t, vterrors.EvaluationFailed, vterrors.ErrState(err))
	assert.Contains(t, err.Error(), "cannot compare")
}

func TestThreeValuedLogic(t *testing.T) {
	T, F, N := lit(true), lit(false), null()
	tcases := []struct {
		name string
		expr Expr
		want any
	}{
		{"T and T", NewAndExpr(T, T), true},
		{"T and F", NewAndExpr(T, F), false},
		{"F and N", NewAndExpr(F, N), false},
		{"N and F", NewAndExpr(N, F), false},
		{"T and N", NewAndExpr(T, N), nil},
		{"N and N", NewAndExpr(N, N), nil},
		{"F or F", NewOrExpr(F, F), false},
		{"T or N", NewOrExpr(T, N), true},
		{"N or T", NewOrExpr(N, T), true},
		{"F or N", NewOrExpr(F, N), nil},
		{"not T", not(T), false},
		{"not N", not(N), nil},
		{"null is null", &IsNullExpr{Inner: N}, true},
		{"true is not null", &IsNullExpr{Inner: T, Negate: true}, true},
		{"1 is null", &IsNullExpr{Inner: lit(1)}, false},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.expr.Eval(RowEnv(nil))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLogicalShortCircuit(t *testing.T) {
	// the right side would fail: column 5 does not exist
	bad := col(5)
	got, err := NewAndExpr(lit(false), bad).Eval(RowEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = NewOrExpr(lit(true), bad).Eval(RowEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = NewAndExpr(lit(true), bad).Eval(RowEnv(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column 5 out of range")
}

func TestArithmetic(t *testing.T) {
	row := RowEnv(sqltypes.MakeRow(7, 2, nil, 0.5))
	tcases := []struct {
		expr Expr
		want any
	}{
		{NewArithmeticExpr(AddOp, col(0), col(1)), int64(9)},
		{NewArithmeticExpr(SubOp, col(0), col(1)), int64(5)},
		{NewArithmeticExpr(MulOp, col(0), col(1)), int64(14)},
		{NewArithmeticExpr(DivOp, col(0), col(1)), 3.5},
		{NewArithmeticExpr(AddOp, col(0), col(3)), 7.5},
		{NewArithmeticExpr(AddOp, col(0), col(2)), nil},
	}
	for _, tc := range tcases {
		t.Run(tc.expr.String(), func(t *testing.T) {
			got, err := tc.expr.Eval(row)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestArithmeticErrors(t *testing.T) {
	_, err := NewArithmeticExpr(DivOp, lit(1), lit(0)).Eval(RowEnv(nil))
	require.EqualError(t, err, "division by zero")
	assert.Equal(t, vterrors.EvaluationFailed, vterrors.ErrState(err))

	_, err = NewArithmeticExpr(AddOp, lit(int64(9223372036854775807)), lit(1)).Eval(RowEnv(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	_, err = NewArithmeticExpr(AddOp, lit("a"), lit(1)).Eval(RowEnv(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not numeric")
}

func TestEvaluateBool(t *testing.T) {
	ok, err := EvaluateBool(nil, RowEnv(nil))
	require.NoError(t, err)
	assert.True(t, ok)

	for _, e := range []Expr{lit(false), null(), lit(1), lit("true")} {
		ok, err := EvaluateBool(e, RowEnv(nil))
		require.NoError(t, err)
		assert.False(t, ok, e.String())
	}
}

func TestFilterProjectJoin(t *testing.T) {
	filter := FilterFn(NewComparisonExpr(GreaterThanOp, col(0), lit(1)))
	pass, err := filter(sqltypes.MakeRow(2, "b"))
	require.NoError(t, err)
	assert.True(t, pass)
	pass, err = filter(sqltypes.MakeRow(1, "a"))
	require.NoError(t, err)
	assert.False(t, pass)

	project := ProjectionFn([]Expr{col(1), NewArithmeticExpr(MulOp, col(0), lit(10))})
	out, err := project(sqltypes.MakeRow(2, "b"))
	require.NoError(t, err)
	assert.Equal(t, sqltypes.MakeRow("b", 20), out)

	join := JoinFn(NewComparisonExpr(EqualOp, col(0), col(2)))
	joined, err := join(sqltypes.MakeRow(1, "a"), sqltypes.MakeRow(1, "x"))
	require.NoError(t, err)
	assert.Equal(t, sqltypes.MakeRow(1, "a", 1, "x"), joined)

	joined, err = join(sqltypes.MakeRow(1, "a"), sqltypes.MakeRow(2, "x"))
	require.NoError(t, err)
	assert.Nil(t, joined)

	joined, err = JoinFn(nil)(sqltypes.MakeRow(1), sqltypes.MakeRow(nil))
	require.NoError(t, err)
	assert.Equal(t, sqltypes.Row{int64(1), nil}, joined)
}

func TestFormat(t *testing.T) {
	e := NewAndExpr(
		NewComparisonExpr(GreaterThanOp, col(0), lit(1)),
		&IsNullExpr{Inner: col(1), Negate: true},
	)
	assert.Equal(t, "($0 > INT64(1) and $1 is not null)", e.String())
	assert.Equal(t, `$1, "x", null`, FormatExprs([]Expr{col(1), lit("x"), null()}))
}
