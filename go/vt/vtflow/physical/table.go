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

package physical

import (
	"vtflow.io/vtflow/go/vt/vtflow/extract"
)

// Table is the metadata of a table backed by a connector.
type Table struct {
	Name string
	// Connector names the connector type serving the table, e.g. "map".
	Connector string
	// MapName is the key-value map holding the rows of a map-backed table.
	MapName         string
	Fields          []TableField
	KeyDescriptor   extract.Descriptor
	ValueDescriptor extract.Descriptor
}

// TableField is a column of a table and where its value lives in an entry.
type TableField struct {
	Name string
	Path extract.Path
	Type extract.Type
}

// FieldIndex returns the position of the named field, or -1.
func (t *Table) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// KeyField returns the index of the field holding the whole entry key, or -1.
func (t *Table) KeyField() int {
	for i, f := range t.Fields {
		if f.Path.IsKey && f.Path.IsThis() {
			return i
		}
	}
	return -1
}
