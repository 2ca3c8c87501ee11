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

package kvstore

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/buger/jsonparser"
	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
)

// Remote stores keep each entry as a small JSON envelope holding both the
// typed key and the typed value:
//
//	{"k":{"t":"int","v":1},"v":{"t":"string","v":"{\"name\":\"ann\"}"}}
//
// The key is repeated in the envelope because the path segment (KeyString)
// does not preserve the key's type.

type typedValue struct {
	T string `json:"t"`
	V any    `json:"v,omitempty"`
}

type envelope struct {
	K typedValue `json:"k"`
	V typedValue `json:"v"`
}

func toTyped(v any) (typedValue, error) {
	switch v := sqltypes.Normalize(v).(type) {
	case nil:
		return typedValue{T: "null"}, nil
	case int64:
		// integers are carried as strings to keep the full 64 bits
		return typedValue{T: "int", V: strconv.FormatInt(v, 10)}, nil
	case float64:
		return typedValue{T: "double", V: v}, nil
	case string:
		return typedValue{T: "string", V: v}, nil
	case bool:
		return typedValue{T: "bool", V: v}, nil
	case []byte:
		return typedValue{T: "bytes", V: base64.StdEncoding.EncodeToString(v)}, nil
	case map[string]any:
		return typedValue{T: "map", V: v}, nil
	default:
		return typedValue{}, vterrors.Errorf(codes.InvalidArgument, "cannot store a value of type %T", v)
	}
}

// EncodeEntry encodes an entry for a remote store.
func EncodeEntry(key, value any) ([]byte, error) {
	k, err := toTyped(key)
	if err != nil {
		return nil, err
	}
	v, err := toTyped(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{K: k, V: v})
}

// DecodeEntry decodes an entry written by EncodeEntry.
func DecodeEntry(data []byte) (key, value any, err error) {
	if key, err = fromTyped(data, "k"); err != nil {
		return nil, nil, err
	}
	if value, err = fromTyped(data, "v"); err != nil {
		return nil, nil, err
	}
	return key, value, nil
}

func fromTyped(data []byte, field string) (any, error) {
	t, err := jsonparser.GetString(data, field, "t")
	if err != nil {
		return nil, decodeError(field, err)
	}
	switch t {
	case "null":
		return nil, nil
	case "int":
		s, err := jsonparser.GetString(data, field, "v")
		if err != nil {
			return nil, decodeError(field, err)
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, decodeError(field, err)
		}
		return i, nil
	case "double":
		f, err := jsonparser.GetFloat(data, field, "v")
		if err != nil {
			return nil, decodeError(field, err)
		}
		return f, nil
	case "string":
		s, err := jsonparser.GetString(data, field, "v")
		if err != nil && err != jsonparser.KeyPathNotFoundError {
			return nil, decodeError(field, err)
		}
		return s, nil
	case "bool":
		b, err := jsonparser.GetBoolean(data, field, "v")
		if err != nil && err != jsonparser.KeyPathNotFoundError {
			return nil, decodeError(field, err)
		}
		return b, nil
	case "bytes":
		s, err := jsonparser.GetString(data, field, "v")
		if err != nil && err != jsonparser.KeyPathNotFoundError {
			return nil, decodeError(field, err)
		}
		return base64.StdEncoding.DecodeString(s)
	case "map":
		raw, _, _, err := jsonparser.Get(data, field, "v")
		if err != nil {
			return map[string]any{}, nil
		}
		m := map[string]any{}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, decodeError(field, err)
		}
		return m, nil
	}
	return nil, vterrors.Errorf(codes.DataLoss, "unknown stored type %q", t)
}

func decodeError(field string, err error) error {
	return vterrors.Wrapf(vterrors.New(codes.DataLoss, err.Error()), "cannot decode stored entry field %q", field)
}
