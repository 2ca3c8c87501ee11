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

package extract

import (
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/vt/vterrors"
)

type (
	// Descriptor describes how the key or the value of a map entry is encoded.
	Descriptor interface {
		NewTarget() Target
		String() string
	}

	// Target holds the object currently being projected. Extractors created
	// from a target read whatever object was set last.
	Target interface {
		SetTarget(obj any)
		CreateExtractor(path string, typ Type) (Extractor, error)
	}

	// Extractor reads one typed field from the current target object.
	Extractor interface {
		Get() (any, error)
	}

	// PrimitiveDescriptor is a scalar key or value. Only the "this" path is valid.
	PrimitiveDescriptor struct{}

	// JSONDescriptor is a JSON document held as a string or as bytes. Paths use
	// the gjson syntax ("address.city", "tags.0").
	JSONDescriptor struct{}

	// MapDescriptor is a decoded map[string]any. Paths are dot separated.
	MapDescriptor struct{}
)

// ParseDescriptor maps a descriptor name to its Descriptor.
func ParseDescriptor(name string) (Descriptor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "primitive":
		return PrimitiveDescriptor{}, nil
	case "json":
		return JSONDescriptor{}, nil
	case "map":
		return MapDescriptor{}, nil
	}
	return nil, vterrors.Errorf(codes.InvalidArgument, "unknown descriptor %q", name)
}

func (PrimitiveDescriptor) NewTarget() Target { return &primitiveTarget{} }
func (PrimitiveDescriptor) String() string    { return "primitive" }
func (JSONDescriptor) NewTarget() Target      { return &jsonTarget{} }
func (JSONDescriptor) String() string         { return "json" }
func (MapDescriptor) NewTarget() Target       { return &mapTarget{} }
func (MapDescriptor) String() string          { return "map" }

// extractorFunc adapts a function to the Extractor interface.
type extractorFunc func() (any, error)

func (f extractorFunc) Get() (any, error) { return f() }

type primitiveTarget struct {
	obj any
}

func (t *primitiveTarget) SetTarget(obj any) {
	t.obj = obj
}

func (t *primitiveTarget) CreateExtractor(path string, typ Type) (Extractor, error) {
	if path != "" && path != ThisPath {
		return nil, vterrors.Errorf(codes.InvalidArgument, "field %q cannot be read from a primitive object", path)
	}
	return extractorFunc(func() (any, error) {
		return Convert(t.obj, typ)
	}), nil
}

type jsonTarget struct {
	obj   any
	json  string
	valid bool
	err   error
}

func (t *jsonTarget) SetTarget(obj any) {
	t.obj = obj
	t.valid = false
	t.err = nil
	t.json = ""
}

// document returns the JSON text of the current object, converting it at most once.
func (t *jsonTarget) document() (string, error) {
	if t.valid || t.err != nil {
		return t.json, t.err
	}
	switch obj := t.obj.(type) {
	case nil:
	case string:
		t.json = obj
	case []byte:
		t.json = string(obj)
	default:
		t.err = vterrors.NewErrorf(codes.InvalidArgument, vterrors.EvaluationFailed, "expected a JSON document, got %T", obj)
		return "", t.err
	}
	if t.json != "" && !gjson.Valid(t.json) {
		t.err = vterrors.NewErrorf(codes.InvalidArgument, vterrors.EvaluationFailed, "invalid JSON document")
		return "", t.err
	}
	t.valid = true
	return t.json, nil
}

func (t *jsonTarget) CreateExtractor(path string, typ Type) (Extractor, error) {
	this := path == "" || path == ThisPath
	return extractorFunc(func() (any, error) {
		doc, err := t.document()
		if err != nil || doc == "" {
			return nil, err
		}
		res := gjson.Parse(doc)
		if !this {
			res = res.Get(path)
		}
		return Convert(jsonValue(res, typ), typ)
	}), nil
}

func jsonValue(res gjson.Result, typ Type) any {
	switch res.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return res.Str
	case gjson.Number:
		if typ == IntegerType || (typ == ObjectType && res.Num == float64(int64(res.Num))) {
			return res.Int()
		}
		return res.Num
	case gjson.JSON:
		if typ == VarcharType {
			return res.Raw
		}
		return res.Value()
	}
	return nil
}

type mapTarget struct {
	obj any
}

func (t *mapTarget) SetTarget(obj any) {
	t.obj = obj
}

func (t *mapTarget) CreateExtractor(path string, typ Type) (Extractor, error) {
	var parts []string
	if path != "" && path != ThisPath {
		parts = strings.Split(path, ".")
	}
	return extractorFunc(func() (any, error) {
		cur := t.obj
		for _, p := range parts {
			if cur == nil {
				return nil, nil
			}
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.EvaluationFailed, "cannot read field %q of %T", p, cur)
			}
			cur = m[p]
		}
		return Convert(cur, typ)
	}), nil
}
