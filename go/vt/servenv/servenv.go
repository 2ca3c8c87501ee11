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

// Package servenv holds the process-level plumbing shared by vtflow binaries:
// flag registration hooks, config file and environment loading.
package servenv

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vtflow.io/vtflow/go/vt/log"
	"vtflow.io/vtflow/go/vt/utils"
)

// EnvPrefix is the prefix of environment variables overriding flags.
// --join-max-concurrent-ops is read from VTFLOW_JOIN_MAX_CONCURRENT_OPS.
const EnvPrefix = "VTFLOW"

var (
	mu            sync.Mutex
	onParseHooks  []func(fs *pflag.FlagSet)
	onParseForCmd = map[string][]func(fs *pflag.FlagSet){}

	configFile string
)

// OnParse registers a callback that adds flags to every binary.
func OnParse(f func(fs *pflag.FlagSet)) {
	mu.Lock()
	defer mu.Unlock()
	onParseHooks = append(onParseHooks, f)
}

// OnParseFor registers a callback that adds flags to the named binary only.
func OnParseFor(cmd string, f func(fs *pflag.FlagSet)) {
	mu.Lock()
	defer mu.Unlock()
	onParseForCmd[cmd] = append(onParseForCmd[cmd], f)
}

// RegisterFlags adds every flag registered for cmd to fs, along with the
// logging and config-file flags.
func RegisterFlags(cmd string, fs *pflag.FlagSet) {
	mu.Lock()
	hooks := append([]func(fs *pflag.FlagSet){}, onParseHooks...)
	hooks = append(hooks, onParseForCmd[cmd]...)
	mu.Unlock()

	log.RegisterFlags(fs)
	utils.SetFlagStringVar(fs, &configFile, "config-file", configFile, "Path to a YAML, JSON or TOML file with flag values. Explicit flags win over the file.")
	for _, hook := range hooks {
		hook(fs)
	}
	fs.SetNormalizeFunc(utils.NormalizeUnderscoresToDashes)
}

// ParseFlags registers the flags of cmd on fs, parses args and loads the
// configuration sources.
func ParseFlags(cmd string, fs *pflag.FlagSet, args []string) error {
	RegisterFlags(cmd, fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return LoadConfig(fs)
}

// LoadConfig fills every flag that was not set on the command line from the
// environment and then from --config-file, and initializes logging.
func LoadConfig(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("cannot read config file %s: %w", configFile, err)
		}
		log.Infof("loaded config from %s", v.ConfigFileUsed())
	}

	var errs []string
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "config-file" || !v.IsSet(f.Name) {
			return
		}
		if err := fs.Set(f.Name, flagValue(v.Get(f.Name))); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f.Name, err))
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return log.Init(fs)
}

// flagValue renders a config value in the syntax pflag parses.
func flagValue(val any) string {
	switch val := val.(type) {
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprint(val)
	}
}

// ConfigFile returns the --config-file value.
func ConfigFile() string {
	return configFile
}
