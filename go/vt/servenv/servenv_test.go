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

package servenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vtflow.io/vtflow/go/vt/utils"
)

type testKnobs struct {
	window  int
	members []string
	store   string
}

func registerTestFlags(cmd string) *testKnobs {
	k := &testKnobs{}
	OnParseFor(cmd, func(fs *pflag.FlagSet) {
		utils.SetFlagIntVar(fs, &k.window, "join-max-concurrent-ops", 8, "window")
		utils.SetFlagStringSliceVar(fs, &k.members, "members", []string{"local"}, "members")
		utils.SetFlagStringVar(fs, &k.store, "store-implementation", "memory", "store")
	})
	return k
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vtflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseFlagsDefaults(t *testing.T) {
	k := registerTestFlags("servenv-defaults")
	fs := pflag.NewFlagSet("servenv-defaults", pflag.ContinueOnError)
	require.NoError(t, ParseFlags("servenv-defaults", fs, nil))

	assert.Equal(t, 8, k.window)
	assert.Equal(t, []string{"local"}, k.members)
	assert.Equal(t, "memory", k.store)
}

func TestParseFlagsOnlyForCmd(t *testing.T) {
	registerTestFlags("servenv-other")
	fs := pflag.NewFlagSet("servenv-only", pflag.ContinueOnError)
	RegisterFlags("servenv-only", fs)
	assert.Nil(t, fs.Lookup("join-max-concurrent-ops"))
	assert.NotNil(t, fs.Lookup("config-file"))
	assert.NotNil(t, fs.Lookup("log-fmt"))
}

func TestConfigFile(t *testing.T) {
	defer func() { configFile = "" }()
	k := registerTestFlags("servenv-file")
	path := writeConfig(t, "join-max-concurrent-ops: 3\nmembers: [m1, m2]\nstore-implementation: etcd\n")

	fs := pflag.NewFlagSet("servenv-file", pflag.ContinueOnError)
	err := ParseFlags("servenv-file", fs, []string{"--config-file", path, "--store-implementation", "consul"})
	require.NoError(t, err)

	assert.Equal(t, 3, k.window)
	assert.Equal(t, []string{"m1", "m2"}, k.members)
	// explicit flag wins over the file
	assert.Equal(t, "consul", k.store)
	assert.Equal(t, path, ConfigFile())
}

func TestEnvOverride(t *testing.T) {
	k := registerTestFlags("servenv-env")
	t.Setenv("VTFLOW_JOIN_MAX_CONCURRENT_OPS", "5")

	fs := pflag.NewFlagSet("servenv-env", pflag.ContinueOnError)
	require.NoError(t, ParseFlags("servenv-env", fs, nil))
	assert.Equal(t, 5, k.window)
}

func TestInvalidConfigValue(t *testing.T) {
	defer func() { configFile = "" }()
	registerTestFlags("servenv-invalid")
	path := writeConfig(t, "join-max-concurrent-ops: lots\n")

	fs := pflag.NewFlagSet("servenv-invalid", pflag.ContinueOnError)
	err := ParseFlags("servenv-invalid", fs, []string{"--config-file", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "join-max-concurrent-ops")
}

func TestMissingConfigFile(t *testing.T) {
	defer func() { configFile = "" }()
	fs := pflag.NewFlagSet("servenv-missing", pflag.ContinueOnError)
	err := ParseFlags("servenv-missing", fs, []string{"--config-file", filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
}
