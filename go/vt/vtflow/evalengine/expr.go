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

// Package evalengine evaluates the scalar expressions carried by physical
// operators: predicates, projections and join conditions.
package evalengine

import (
	"strconv"

	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
)

type (
	// Env gives an expression access to the columns of the row it is evaluated on.
	Env interface {
		Column(idx int) (any, error)
	}

	// Expr is a compiled scalar expression. Eval returns a normalized value
	// (see sqltypes.Normalize) or nil for NULL.
	Expr interface {
		Eval(env Env) (any, error)
		String() string
	}

	// Column reads the column at Offset.
	Column struct {
		Offset int
	}

	// Literal is a constant.
	Literal struct {
		Val any
	}

	// RowEnv evaluates expressions over a materialized row.
	RowEnv sqltypes.Row
)

var _ Expr = (*Column)(nil)
var _ Expr = (*Literal)(nil)
var _ Env = RowEnv(nil)

// NewColumn returns an expression reading the column at offset.
func NewColumn(offset int) *Column {
	return &Column{Offset: offset}
}

// NewLiteral returns a constant expression.
func NewLiteral(val any) *Literal {
	return &Literal{Val: sqltypes.Normalize(val)}
}

// NewLiteralNull returns the NULL constant.
func NewLiteralNull() *Literal {
	return &Literal{}
}

func (c *Column) Eval(env Env) (any, error) {
	return env.Column(c.Offset)
}

func (c *Column) String() string {
	return "$" + strconv.Itoa(c.Offset)
}

func (l *Literal) Eval(Env) (any, error) {
	return l.Val, nil
}

func (l *Literal) String() string {
	switch v := l.Val.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	default:
		return sqltypes.FormatValue(v)
	}
}

// Column implements Env.
func (r RowEnv) Column(idx int) (any, error) {
	if idx < 0 || idx >= len(r) {
		return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.EvaluationFailed, "column %d out of range for row of arity %d", idx, len(r))
	}
	return r[idx], nil
}

func evalError(format string, args ...any) error {
	return vterrors.NewErrorf(codes.InvalidArgument, vterrors.EvaluationFailed, format, args...)
}
