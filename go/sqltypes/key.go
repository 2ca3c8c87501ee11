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

package sqltypes

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeKey returns a canonical string for a list of values. Two value lists
// encode to the same string if and only if they are equal after normalization,
// which makes the result usable both as a map key and as a partitioning hash input.
func EncodeKey(values ...any) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		appendKey(&sb, Normalize(v))
	}
	return sb.String()
}

func appendKey(sb *strings.Builder, v any) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("n")
	case int64:
		sb.WriteString("i")
		sb.WriteString(strconv.FormatInt(v, 10))
	case float64:
		// integral floats collapse onto their integer form so that 1 and 1.0 group together
		if v == float64(int64(v)) {
			sb.WriteString("i")
			sb.WriteString(strconv.FormatInt(int64(v), 10))
			return
		}
		sb.WriteString("f")
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case string:
		sb.WriteString("s")
		sb.WriteString(v)
	case []byte:
		sb.WriteString("b")
		sb.Write(v)
	case bool:
		if v {
			sb.WriteString("t")
		} else {
			sb.WriteString("F")
		}
	default:
		sb.WriteString("o")
		sb.WriteString(fmt.Sprint(v))
	}
}

// ColumnsKey encodes the given columns of a row with EncodeKey.
func ColumnsKey(row Row, cols ...int) (string, error) {
	values := make([]any, len(cols))
	for i, c := range cols {
		if c < 0 || c >= len(row) {
			return "", fmt.Errorf("column %d out of range for row of arity %d", c, len(row))
		}
		values[i] = row[c]
	}
	return EncodeKey(values...), nil
}
