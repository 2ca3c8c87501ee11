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

// Package extract reads typed fields out of key and value objects. Each
// extractor is bound once to a target and re-reads the current object on
// every Get, so a field is decoded only when something asks for it.
package extract

import (
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
)

// Type is the declared SQL type of a field.
type Type int8

const (
	ObjectType Type = iota
	BooleanType
	IntegerType
	DoubleType
	VarcharType
)

var typeNames = map[Type]string{
	ObjectType:  "OBJECT",
	BooleanType: "BOOLEAN",
	IntegerType: "BIGINT",
	DoubleType:  "DOUBLE",
	VarcharType: "VARCHAR",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
}

// ParseType maps a type name (case insensitive) to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "OBJECT":
		return ObjectType, nil
	case "BOOLEAN", "BOOL":
		return BooleanType, nil
	case "BIGINT", "INTEGER", "INT":
		return IntegerType, nil
	case "DOUBLE", "FLOAT":
		return DoubleType, nil
	case "VARCHAR", "STRING", "TEXT":
		return VarcharType, nil
	}
	return ObjectType, vterrors.Errorf(codes.InvalidArgument, "unknown field type %q", name)
}

// ThisPath addresses the whole key or value object.
const ThisPath = "this"

// Path locates a field in the key or in the value of an entry.
type Path struct {
	IsKey bool
	Path  string
}

// KeyPath returns a path into the entry key.
func KeyPath(path string) Path {
	return Path{IsKey: true, Path: path}
}

// ValuePath returns a path into the entry value.
func ValuePath(path string) Path {
	return Path{Path: path}
}

// IsThis reports whether the path addresses the whole object.
func (p Path) IsThis() bool {
	return p.Path == "" || p.Path == ThisPath
}

func (p Path) String() string {
	prefix := "__value"
	if p.IsKey {
		prefix = "__key"
	}
	if p.IsThis() {
		return prefix
	}
	return prefix + "." + p.Path
}

// ParsePath parses the form printed by Path.String: "__key", "__key.a.b",
// "__value.a" or a bare "a.b", which addresses the value.
func ParsePath(s string) Path {
	switch {
	case s == "__key":
		return KeyPath(ThisPath)
	case s == "__value":
		return ValuePath(ThisPath)
	case strings.HasPrefix(s, "__key."):
		return KeyPath(strings.TrimPrefix(s, "__key."))
	case strings.HasPrefix(s, "__value."):
		return ValuePath(strings.TrimPrefix(s, "__value."))
	}
	return ValuePath(s)
}

// Convert converts a decoded value to the declared type. NULL converts to NULL.
func Convert(v any, typ Type) (any, error) {
	v = sqltypes.Normalize(v)
	if v == nil {
		return nil, nil
	}
	switch typ {
	case ObjectType:
		return v, nil
	case BooleanType:
		switch v := v.(type) {
		case bool:
			return v, nil
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b, nil
			}
		}
	case IntegerType:
		switch v := v.(type) {
		case int64:
			return v, nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
		case string:
			if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return i, nil
			}
		}
	case DoubleType:
		switch v := v.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, nil
			}
		}
	case VarcharType:
		switch v := v.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		case bool:
			return strconv.FormatBool(v), nil
		}
	}
	return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.EvaluationFailed, "cannot convert %s to %s", sqltypes.FormatValue(v), typ)
}
