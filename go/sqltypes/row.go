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

// Package sqltypes defines the row payload that flows along dataflow edges
// and the helpers used to build, combine and print rows.
package sqltypes

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is an ordered, fixed-arity sequence of values. A nil element is SQL NULL.
// Values are normalized to int64, float64, string, bool or []byte where possible;
// other values are carried opaquely (for example partial aggregation state).
type Row []any

// MakeRow returns a row built from the given values, normalizing the numeric ones.
func MakeRow(values ...any) Row {
	row := make(Row, len(values))
	for i, v := range values {
		row[i] = Normalize(v)
	}
	return row
}

// Arity returns the number of columns in the row.
func (r Row) Arity() int {
	return len(r)
}

// Copy returns a shallow copy of the row.
func (r Row) Copy() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Concat returns a new row holding the columns of left followed by those of right.
func Concat(left, right Row) Row {
	out := make(Row, 0, len(left)+len(right))
	out = append(out, left...)
	return append(out, right...)
}

// PadRight returns a new row holding the columns of r followed by n NULLs.
func PadRight(r Row, n int) Row {
	out := make(Row, len(r), len(r)+n)
	copy(out, r)
	for i := 0; i < n; i++ {
		out = append(out, nil)
	}
	return out
}

// String prints the row in the form [INT64(1) VARCHAR("a") NULL].
func (r Row) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range r {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(FormatValue(v))
	}
	sb.WriteByte(']')
	return sb.String()
}

// RowsString prints a list of rows, one bracketed row after the other.
func RowsString(rows []Row) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, r := range rows {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(r.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// FormatValue prints a single value with its type tag.
func FormatValue(v any) string {
	switch v := Normalize(v).(type) {
	case nil:
		return "NULL"
	case int64:
		return "INT64(" + strconv.FormatInt(v, 10) + ")"
	case float64:
		return "FLOAT64(" + strconv.FormatFloat(v, 'g', -1, 64) + ")"
	case string:
		return "VARCHAR(" + strconv.Quote(v) + ")"
	case bool:
		return "BOOLEAN(" + strconv.FormatBool(v) + ")"
	case []byte:
		return "VARBINARY(" + strconv.Quote(string(v)) + ")"
	default:
		return fmt.Sprintf("OBJECT(%v)", v)
	}
}

// Normalize folds the Go numeric types into int64 and float64.
func Normalize(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}
