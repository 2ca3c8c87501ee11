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

type (
	// LogicalExpr is AND or OR with SQL three-valued logic.
	LogicalExpr struct {
		Left, Right Expr
		Or          bool
	}

	// NotExpr negates a boolean. NOT NULL is NULL.
	NotExpr struct {
		Inner Expr
	}

	// IsNullExpr is `Inner IS [NOT] NULL`. It never evaluates to NULL.
	IsNullExpr struct {
		Inner  Expr
		Negate bool
	}

	boolean int8
)

var _ Expr = (*LogicalExpr)(nil)
var _ Expr = (*NotExpr)(nil)
var _ Expr = (*IsNullExpr)(nil)

const (
	boolFalse boolean = 0
	boolTrue  boolean = 1
	boolNULL  boolean = -1
)

// NewAndExpr returns left AND right.
func NewAndExpr(left, right Expr) *LogicalExpr {
	return &LogicalExpr{Left: left, Right: right}
}

// NewOrExpr returns left OR right.
func NewOrExpr(left, right Expr) *LogicalExpr {
	return &LogicalExpr{Left: left, Right: right, Or: true}
}

func (b boolean) eval() any {
	switch b {
	case boolTrue:
		return true
	case boolFalse:
		return false
	default:
		return nil
	}
}

func (b boolean) not() boolean {
	switch b {
	case boolFalse:
		return boolTrue
	case boolTrue:
		return boolFalse
	default:
		return b
	}
}

// truthy maps a value onto the three boolean states. Numbers are true when
// non-zero, the way MySQL treats them in a boolean context.
func truthy(v any) (boolean, error) {
	switch v := sqltypes.Normalize(v).(type) {
	case nil:
		return boolNULL, nil
	case bool:
		if v {
			return boolTrue, nil
		}
		return boolFalse, nil
	case int64:
		if v != 0 {
			return boolTrue, nil
		}
		return boolFalse, nil
	case float64:
		if v != 0 {
			return boolTrue, nil
		}
		return boolFalse, nil
	default:
		return boolNULL, evalError("%s is not a boolean", sqltypes.FormatValue(v))
	}
}

func evalBoolean(e Expr, env Env) (boolean, error) {
	v, err := e.Eval(env)
	if err != nil {
		return boolNULL, err
	}
	return truthy(v)
}

func (l *LogicalExpr) Eval(env Env) (any, error) {
	left, err := evalBoolean(l.Left, env)
	if err != nil {
		return nil, err
	}
	// short circuit: FALSE AND x, TRUE OR x
	if !l.Or && left == boolFalse {
		return false, nil
	}
	if l.Or && left == boolTrue {
		return true, nil
	}
	right, err := evalBoolean(l.Right, env)
	if err != nil {
		return nil, err
	}
	if l.Or {
		switch {
		case right == boolTrue:
			return true, nil
		case left == boolNULL || right == boolNULL:
			return nil, nil
		default:
			return false, nil
		}
	}
	switch {
	case right == boolFalse:
		return false, nil
	case left == boolNULL || right == boolNULL:
		return nil, nil
	default:
		return true, nil
	}
}

func (l *LogicalExpr) String() string {
	op := " and "
	if l.Or {
		op = " or "
	}
	return "(" + l.Left.String() + op + l.Right.String() + ")"
}

func (n *NotExpr) Eval(env Env) (any, error) {
	b, err := evalBoolean(n.Inner, env)
	if err != nil {
		return nil, err
	}
	return b.not().eval(), nil
}

func (n *NotExpr) String() string {
	return "not " + n.Inner.String()
}

func (i *IsNullExpr) Eval(env Env) (any, error) {
	v, err := i.Inner.Eval(env)
	if err != nil {
		return nil, err
	}
	return (v == nil) != i.Negate, nil
}

func (i *IsNullExpr) String() string {
	if i.Negate {
		return i.Inner.String() + " is not null"
	}
	return i.Inner.String() + " is null"
}
