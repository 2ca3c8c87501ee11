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

package planspec

import (
	"strings"

	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/evalengine"
)

// Expr is a scalar expression of a plan document. Exactly one form is used:
//
//	{col: 1}                       column 1 of the input row
//	{lit: "a"}, {lit: null}        a constant
//	{op: gt, args: [e1, e2]}       an operator applied to its arguments
type Expr struct {
	Col  *int    `json:"col,omitempty"`
	Lit  any     `json:"lit,omitempty"`
	Op   string  `json:"op,omitempty"`
	Args []*Expr `json:"args,omitempty"`
}

var comparisons = map[string]evalengine.ComparisonOp{
	"eq": evalengine.EqualOp,
	"ne": evalengine.NotEqualOp,
	"lt": evalengine.LessThanOp,
	"le": evalengine.LessEqualOp,
	"gt": evalengine.GreaterThanOp,
	"ge": evalengine.GreaterEqualOp,
}

var arithmetics = map[string]evalengine.ArithmeticOp{
	"add": evalengine.AddOp,
	"sub": evalengine.SubOp,
	"mul": evalengine.MulOp,
	"div": evalengine.DivOp,
}

// Compile returns the evaluable form of the expression. A nil Expr compiles
// to nil.
func (e *Expr) Compile() (evalengine.Expr, error) {
	if e == nil {
		return nil, nil
	}
	switch {
	case e.Col != nil:
		if e.Op != "" || e.Lit != nil {
			return nil, invalid("expression mixes col with other forms")
		}
		if *e.Col < 0 {
			return nil, invalid("negative column %d", *e.Col)
		}
		return evalengine.NewColumn(*e.Col), nil
	case e.Op == "":
		if len(e.Args) > 0 {
			return nil, invalid("arguments without an operator")
		}
		lit, err := value(e.Lit)
		if err != nil {
			return nil, err
		}
		if lit == nil {
			return evalengine.NewLiteralNull(), nil
		}
		return evalengine.NewLiteral(lit), nil
	}

	args := make([]evalengine.Expr, len(e.Args))
	for i, a := range e.Args {
		if a == nil {
			return nil, invalid("%s: argument %d is empty", e.Op, i)
		}
		arg, err := a.Compile()
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	op := strings.ToLower(e.Op)
	if cmp, ok := comparisons[op]; ok {
		if err := arity(op, args, 2); err != nil {
			return nil, err
		}
		return evalengine.NewComparisonExpr(cmp, args[0], args[1]), nil
	}
	if arith, ok := arithmetics[op]; ok {
		if err := arity(op, args, 2); err != nil {
			return nil, err
		}
		return evalengine.NewArithmeticExpr(arith, args[0], args[1]), nil
	}
	switch op {
	case "and", "or":
		if len(args) < 2 {
			return nil, invalid("%s needs at least 2 arguments, got %d", op, len(args))
		}
		out := args[0]
		for _, a := range args[1:] {
			if op == "and" {
				out = evalengine.NewAndExpr(out, a)
			} else {
				out = evalengine.NewOrExpr(out, a)
			}
		}
		return out, nil
	case "not":
		if err := arity(op, args, 1); err != nil {
			return nil, err
		}
		return &evalengine.NotExpr{Inner: args[0]}, nil
	case "isnull", "isnotnull":
		if err := arity(op, args, 1); err != nil {
			return nil, err
		}
		return &evalengine.IsNullExpr{Inner: args[0], Negate: op == "isnotnull"}, nil
	}
	return nil, invalid("unknown operator %q", e.Op)
}

// value checks a literal and folds json numbers into int64 or float64.
func value(v any) (any, error) {
	switch v := number(v).(type) {
	case nil, int64, float64, string, bool:
		return v, nil
	default:
		return nil, invalid("unsupported literal %v of type %T", v, v)
	}
}

func arity(op string, args []evalengine.Expr, n int) error {
	if len(args) != n {
		return invalid("%s takes %d arguments, got %d", op, n, len(args))
	}
	return nil
}

func compileAll(exprs []*Expr) ([]evalengine.Expr, error) {
	if exprs == nil {
		return nil, nil
	}
	out := make([]evalengine.Expr, len(exprs))
	for i, e := range exprs {
		if e == nil {
			return nil, invalid("expression %d is empty", i)
		}
		c, err := e.Compile()
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func invalid(format string, args ...any) error {
	return vterrors.Errorf(codes.InvalidArgument, format, args...)
}
