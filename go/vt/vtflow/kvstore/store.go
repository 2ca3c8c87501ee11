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

// Package kvstore is the client side of the partitioned key-value maps that
// back tables and serve enrichment-join lookups. Implementations register a
// Factory under a name and are opened with Open.
package kvstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/servenv"
	"vtflow.io/vtflow/go/vt/utils"
	"vtflow.io/vtflow/go/vt/vterrors"
)

// Store is one named map. A nil value means the key is absent: maps never
// hold NULL values.
type Store interface {
	// Get returns the value stored under key, or nil.
	Get(ctx context.Context, key any) (any, error)
	// GetAsync starts a lookup and returns immediately.
	GetAsync(ctx context.Context, key any) *Future
	// Put stores value under key. A nil value removes the key.
	Put(ctx context.Context, key, value any) error
	// Scan calls fn for every entry of the map. Iteration stops at the first error.
	Scan(ctx context.Context, fn func(key, value any) error) error
}

// Cluster gives access to the maps of one key-value cluster.
type Cluster interface {
	Map(name string) (Store, error)
	Close() error
}

// Config holds the connection parameters of a Cluster.
type Config struct {
	// ServerAddress is a comma separated list of endpoints.
	ServerAddress string
	// Root prefixes every key the cluster writes.
	Root        string
	DialTimeout time.Duration
}

// Factory creates clusters of one implementation.
type Factory interface {
	Create(cfg Config) (Cluster, error)
}

var (
	factoriesMu sync.Mutex
	factories   = make(map[string]Factory)

	storeImplementation = "memory"
	storeServerAddress  string
	storeRoot           = "/vtflow"
	storeDialTimeout    = 5 * time.Second
)

func init() {
	servenv.OnParseFor("vtflow", registerFlags)
}

func registerFlags(fs *pflag.FlagSet) {
	utils.SetFlagStringVar(fs, &storeImplementation, "store-implementation", storeImplementation, "the key-value store implementation to use (memory, etcd or consul)")
	utils.SetFlagStringVar(fs, &storeServerAddress, "store-server-address", storeServerAddress, "the address of the key-value store server")
	utils.SetFlagStringVar(fs, &storeRoot, "store-root", storeRoot, "the root path under which maps are stored")
	utils.SetFlagDurationVar(fs, &storeDialTimeout, "store-dial-timeout", storeDialTimeout, "timeout for connecting to the key-value store")
}

// RegisterFactory registers a Factory for an implementation name. It panics
// when the name is already taken.
func RegisterFactory(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if factories[name] != nil {
		panic(fmt.Sprintf("duplicate kvstore.Factory registration for %v", name))
	}
	factories[name] = factory
}

// Implementations returns the registered implementation names, sorted.
func Implementations() []string {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens a cluster of the named implementation.
func Open(implementation string, cfg Config) (Cluster, error) {
	factoriesMu.Lock()
	factory, ok := factories[implementation]
	factoriesMu.Unlock()
	if !ok {
		return nil, vterrors.Errorf(codes.InvalidArgument, "kvstore implementation %q not found, registered: %v", implementation, Implementations())
	}
	return factory.Create(cfg)
}

// OpenFromFlags opens the cluster selected by the --store-* flags.
func OpenFromFlags() (Cluster, error) {
	return Open(storeImplementation, Config{
		ServerAddress: storeServerAddress,
		Root:          storeRoot,
		DialTimeout:   storeDialTimeout,
	})
}

// Implementation returns the --store-implementation value.
func Implementation() string {
	return storeImplementation
}

// KeyString returns the canonical path segment of a key. Keys equal after
// normalization (1 and int64(1)) map to the same segment.
func KeyString(key any) string {
	return url.PathEscape(sqltypes.EncodeKey(key))
}

// EntryPath returns the full path of key in the named map.
func EntryPath(root, mapName string, key any) string {
	return MapPath(root, mapName) + KeyString(key)
}

// MapPath returns the prefix shared by every entry of the named map.
func MapPath(root, mapName string) string {
	return root + "/" + url.PathEscape(mapName) + "/"
}
