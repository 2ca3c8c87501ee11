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

// Package cachedstore wraps a kvstore.Cluster with a read-through lookup
// cache. Enrichment joins look the same keys up again and again; with a
// cache TTL set, repeated lookups of a key within the TTL are answered
// locally. Absent keys are cached too.
//
// Writes made through the wrapper invalidate the cached entry. Writes made
// by other clients are visible once the entry expires.
package cachedstore

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/pflag"

	"vtflow.io/vtflow/go/stats"
	"vtflow.io/vtflow/go/vt/log"
	"vtflow.io/vtflow/go/vt/servenv"
	"vtflow.io/vtflow/go/vt/utils"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
)

var (
	cacheTTL time.Duration

	cacheHits   = stats.NewCounter("StoreCacheHits", "Lookups answered by the store cache")
	cacheMisses = stats.NewCounter("StoreCacheMisses", "Lookups forwarded to the key-value store")
)

func init() {
	servenv.OnParseFor("vtflow", registerFlags)
}

func registerFlags(fs *pflag.FlagSet) {
	utils.SetFlagDurationVar(fs, &cacheTTL, "store-cache-ttl", cacheTTL, "how long lookup results are cached; 0 disables the cache")
}

// absent marks a cached lookup of a key that has no value.
type absent struct{}

// Cluster is a kvstore.Cluster whose lookups go through a cache.
type Cluster struct {
	inner kvstore.Cluster
	cache *cache.Cache
}

var _ kvstore.Cluster = (*Cluster)(nil)

// New wraps inner with a cache keeping lookup results for ttl.
func New(inner kvstore.Cluster, ttl time.Duration) *Cluster {
	return &Cluster{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

// WrapFromFlags wraps inner when --store-cache-ttl is positive and returns
// it unchanged otherwise.
func WrapFromFlags(inner kvstore.Cluster) kvstore.Cluster {
	if cacheTTL <= 0 {
		return inner
	}
	log.Infof("caching store lookups for %v", cacheTTL)
	return New(inner, cacheTTL)
}

// Map implements kvstore.Cluster.
func (c *Cluster) Map(name string) (kvstore.Store, error) {
	s, err := c.inner.Map(name)
	if err != nil {
		return nil, err
	}
	return &Store{inner: s, cache: c.cache, prefix: name + "/"}, nil
}

// Close drops the cached entries and closes the wrapped cluster.
func (c *Cluster) Close() error {
	c.cache.Flush()
	return c.inner.Close()
}

// Len returns the number of cached lookups, expired ones included until
// the next cleanup.
func (c *Cluster) Len() int {
	return c.cache.ItemCount()
}

// Store is one map of a cached cluster.
type Store struct {
	inner  kvstore.Store
	cache  *cache.Cache
	prefix string
}

var _ kvstore.Store = (*Store)(nil)

func (s *Store) cacheKey(key any) string {
	return s.prefix + kvstore.KeyString(key)
}

func (s *Store) lookup(key any) (any, bool) {
	v, ok := s.cache.Get(s.cacheKey(key))
	if !ok {
		cacheMisses.Add(1)
		return nil, false
	}
	cacheHits.Add(1)
	if _, ok := v.(absent); ok {
		return nil, true
	}
	return v, true
}

func (s *Store) remember(key, value any) {
	if value == nil {
		value = absent{}
	}
	s.cache.SetDefault(s.cacheKey(key), value)
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key any) (any, error) {
	if v, ok := s.lookup(key); ok {
		return v, nil
	}
	v, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.remember(key, v)
	return v, nil
}

// GetAsync implements kvstore.Store. A cached key returns a completed Future.
func (s *Store) GetAsync(ctx context.Context, key any) *kvstore.Future {
	if v, ok := s.lookup(key); ok {
		return kvstore.Resolved(v, nil)
	}
	pending := s.inner.GetAsync(ctx, key)
	return kvstore.NewFuture(ctx, func(ctx context.Context) (any, error) {
		v, err := pending.Wait(ctx)
		if err != nil {
			return nil, err
		}
		s.remember(key, v)
		return v, nil
	})
}

// Put implements kvstore.Store. The cached entry is dropped whether or not
// the write succeeds.
func (s *Store) Put(ctx context.Context, key, value any) error {
	defer s.cache.Delete(s.cacheKey(key))
	return s.inner.Put(ctx, key, value)
}

// Scan implements kvstore.Store. Scans always read the wrapped store.
func (s *Store) Scan(ctx context.Context, fn func(key, value any) error) error {
	return s.inner.Scan(ctx, fn)
}
