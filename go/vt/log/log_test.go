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

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	h, err := newHandler(&buf, "json", "warn")
	require.NoError(t, err)

	restore := SetLogger(slog.New(h))
	defer restore()

	InfoS("dropped", "k", 1)
	WarnS("kept", "query", "q1")
	assert.True(t, Enabled(slog.LevelError))
	assert.False(t, Enabled(slog.LevelInfo))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "q1", rec["query"])

	_, err = newHandler(&buf, "xml", "info")
	assert.ErrorContains(t, err, "invalid log-fmt")
	_, err = newHandler(&buf, "json", "loud")
	assert.ErrorContains(t, err, "invalid log-level")
}

func TestInitWithoutFormatFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-level", "debug"}))
	require.NoError(t, Init(fs))
	assert.False(t, structured.Load())
}

func TestRotateMaxSizeFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-rotate-max-size", "4096"}))
	assert.Equal(t, "4096", fs.Lookup("log-rotate-max-size").Value.String())
	assert.Error(t, fs.Parse([]string{"--log-rotate-max-size", "lots"}))
}
