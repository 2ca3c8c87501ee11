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

package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	var snakeCaseTest = []struct{ input, output string }{
		{"Camel", "camel"},
		{"CamelCase", "camel_case"},
		{"CamelCaseAgain", "camel_case_again"},
		{"CCamel", "c_camel"},
		{"CCCamel", "cc_camel"},
		{"CAMEL_CASE", "camel_case"},
		{"camel-case", "camel_case"},
		{"0", "0"},
		{"0.0", "0_0"},
		{"JSON", "json"},
		{"EnrichmentJoinLookups", "enrichment_join_lookups"},
	}

	for _, tt := range snakeCaseTest {
		assert.Equal(t, tt.output, toSnakeCase(tt.input), tt.input)
	}
}

func TestSnakeMemoize(t *testing.T) {
	key := "MemoTest"
	assert.Empty(t, snakeMemoizer.memo[key])
	toSnakeCase(key)
	assert.Equal(t, "memo_test", snakeMemoizer.memo[key])
}
