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
	"math"

	"vtflow.io/vtflow/go/sqltypes"
)

// ArithmeticOp is the operator of an ArithmeticExpr.
type ArithmeticOp int8

const (
	AddOp ArithmeticOp = iota
	SubOp
	MulOp
	DivOp
)

func (op ArithmeticOp) String() string {
	switch op {
	case AddOp:
		return "+"
	case SubOp:
		return "-"
	case MulOp:
		return "*"
	case DivOp:
		return "/"
	}
	return "?"
}

// ArithmeticExpr applies a numeric operator. Integer operands stay integers
// except for division, which always yields a double. NULL operands yield NULL.
type ArithmeticExpr struct {
	Op          ArithmeticOp
	Left, Right Expr
}

var _ Expr = (*ArithmeticExpr)(nil)

// NewArithmeticExpr returns Left Op Right.
func NewArithmeticExpr(op ArithmeticOp, left, right Expr) *ArithmeticExpr {
	return &ArithmeticExpr{Op: op, Left: left, Right: right}
}

func (a *ArithmeticExpr) Eval(env Env) (any, error) {
	l, err := a.Left.Eval(env)
	if err != nil {
		return nil, err
	}
	r, err := a.Right.Eval(env)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	l, r = sqltypes.Normalize(l), sqltypes.Normalize(r)

	li, lInt := l.(int64)
	ri, rInt := r.(int64)
	if lInt && rInt && a.Op != DivOp {
		return integerArithmetic(a.Op, li, ri)
	}

	lf, ok := toFloat(l)
	if !ok {
		return nil, evalError("%s is not numeric", sqltypes.FormatValue(l))
	}
	rf, ok := toFloat(r)
	if !ok {
		return nil, evalError("%s is not numeric", sqltypes.FormatValue(r))
	}
	switch a.Op {
	case AddOp:
		return lf + rf, nil
	case SubOp:
		return lf - rf, nil
	case MulOp:
		return lf * rf, nil
	case DivOp:
		if rf == 0 {
			return nil, evalError("division by zero")
		}
		return lf / rf, nil
	}
	return nil, evalError("unsupported arithmetic operator %d", a.Op)
}

func integerArithmetic(op ArithmeticOp, l, r int64) (any, error) {
	switch op {
	case AddOp:
		if (r > 0 && l > math.MaxInt64-r) || (r < 0 && l < math.MinInt64-r) {
			return nil, evalError("BIGINT value is out of range in %d + %d", l, r)
		}
		return l + r, nil
	case SubOp:
		if (r < 0 && l > math.MaxInt64+r) || (r > 0 && l < math.MinInt64+r) {
			return nil, evalError("BIGINT value is out of range in %d - %d", l, r)
		}
		return l - r, nil
	case MulOp:
		if l != 0 && r != 0 {
			res := l * r
			if res/r != l || (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
				return nil, evalError("BIGINT value is out of range in %d * %d", l, r)
			}
			return res, nil
		}
		return int64(0), nil
	}
	return nil, evalError("unsupported arithmetic operator %d", op)
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func (a *ArithmeticExpr) String() string {
	return "(" + a.Left.String() + " " + a.Op.String() + " " + a.Right.String() + ")"
}
