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
	"bytes"
	"strings"

	"vtflow.io/vtflow/go/sqltypes"
)

// ComparisonOp is the operator of a ComparisonExpr.
type ComparisonOp int8

const (
	EqualOp ComparisonOp = iota
	NotEqualOp
	LessThanOp
	LessEqualOp
	GreaterThanOp
	GreaterEqualOp
)

var comparisonNames = [...]string{"=", "!=", "<", "<=", ">", ">="}

func (op ComparisonOp) String() string {
	if int(op) < len(comparisonNames) {
		return comparisonNames[op]
	}
	return "?"
}

// ComparisonExpr compares two values. If either side is NULL, the result is NULL.
type ComparisonExpr struct {
	Op          ComparisonOp
	Left, Right Expr
}

var _ Expr = (*ComparisonExpr)(nil)

// NewComparisonExpr returns Left Op Right.
func NewComparisonExpr(op ComparisonOp, left, right Expr) *ComparisonExpr {
	return &ComparisonExpr{Op: op, Left: left, Right: right}
}

func (c *ComparisonExpr) Eval(env Env) (any, error) {
	l, err := c.Left.Eval(env)
	if err != nil {
		return nil, err
	}
	r, err := c.Right.Eval(env)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	cmp, err := Compare(l, r)
	if err != nil {
		return nil, err
	}
	switch c.Op {
	case EqualOp:
		return cmp == 0, nil
	case NotEqualOp:
		return cmp != 0, nil
	case LessThanOp:
		return cmp < 0, nil
	case LessEqualOp:
		return cmp <= 0, nil
	case GreaterThanOp:
		return cmp > 0, nil
	case GreaterEqualOp:
		return cmp >= 0, nil
	}
	return nil, evalError("unsupported comparison operator %d", c.Op)
}

func (c *ComparisonExpr) String() string {
	return c.Left.String() + " " + c.Op.String() + " " + c.Right.String()
}

// Compare orders two non-NULL values. Integers and doubles compare numerically,
// strings and binaries bytewise, booleans with false < true. Any other pairing
// is an evaluation error.
func Compare(l, r any) (int, error) {
	l, r = sqltypes.Normalize(l), sqltypes.Normalize(r)
	switch lv := l.(type) {
	case int64:
		switch rv := r.(type) {
		case int64:
			return compareOrdered(lv, rv), nil
		case float64:
			return compareOrdered(float64(lv), rv), nil
		}
	case float64:
		switch rv := r.(type) {
		case int64:
			return compareOrdered(lv, float64(rv)), nil
		case float64:
			return compareOrdered(lv, rv), nil
		}
	case string:
		switch rv := r.(type) {
		case string:
			return strings.Compare(lv, rv), nil
		case []byte:
			return bytes.Compare([]byte(lv), rv), nil
		}
	case []byte:
		switch rv := r.(type) {
		case []byte:
			return bytes.Compare(lv, rv), nil
		case string:
			return bytes.Compare(lv, []byte(rv)), nil
		}
	case bool:
		if rv, ok := r.(bool); ok {
			switch {
			case lv == rv:
				return 0, nil
			case !lv:
				return -1, nil
			default:
				return 1, nil
			}
		}
	}
	return 0, evalError("cannot compare %s and %s", sqltypes.FormatValue(l), sqltypes.FormatValue(r))
}

func compareOrdered[T int64 | float64](l, r T) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}
