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

// Package memorystore is an in-process kvstore implementation. It backs
// tests and single-process runs of the vtflow binary.
package memorystore

import (
	"context"
	"sync"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
)

// Factory creates in-memory clusters. Every Create returns a new, empty cluster.
type Factory struct{}

// Create implements kvstore.Factory.
func (Factory) Create(kvstore.Config) (kvstore.Cluster, error) {
	return NewCluster(), nil
}

func init() {
	kvstore.RegisterFactory("memory", Factory{})
}

// Cluster is a set of in-memory maps.
type Cluster struct {
	mu   sync.Mutex
	maps map[string]*Store
}

var _ kvstore.Cluster = (*Cluster)(nil)

// NewCluster returns an empty cluster.
func NewCluster() *Cluster {
	return &Cluster{maps: make(map[string]*Store)}
}

// Map implements kvstore.Cluster. Maps are created on first use.
func (c *Cluster) Map(name string) (kvstore.Store, error) {
	return c.Store(name), nil
}

// Store returns the concrete map, creating it if needed.
func (c *Cluster) Store(name string) *Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.maps[name]
	if !ok {
		s = newStore()
		c.maps[name] = s
	}
	return s
}

// Close implements kvstore.Cluster.
func (c *Cluster) Close() error {
	return nil
}

type entry struct {
	key   any
	value any
}

// Store is an in-memory map. Scan visits entries in insertion order.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

var _ kvstore.Store = (*Store)(nil)

func newStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[sqltypes.EncodeKey(key)]; ok {
		return e.value, nil
	}
	return nil, nil
}

// GetAsync implements kvstore.Store. The result is available immediately.
func (s *Store) GetAsync(ctx context.Context, key any) *kvstore.Future {
	return kvstore.Resolved(s.Get(ctx, key))
}

// Put implements kvstore.Store.
func (s *Store) Put(ctx context.Context, key, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := sqltypes.EncodeKey(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		if _, ok := s.entries[k]; ok {
			delete(s.entries, k)
			for i, o := range s.order {
				if o == k {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		}
		return nil
	}
	if e, ok := s.entries[k]; ok {
		e.value = value
		return nil
	}
	s.entries[k] = &entry{key: sqltypes.Normalize(key), value: value}
	s.order = append(s.order, k)
	return nil
}

// Scan implements kvstore.Store. It iterates over a snapshot so fn may write
// to the store.
func (s *Store) Scan(ctx context.Context, fn func(key, value any) error) error {
	s.mu.RLock()
	snapshot := make([]entry, 0, len(s.order))
	for _, k := range s.order {
		snapshot = append(snapshot, *s.entries[k])
	}
	s.mu.RUnlock()

	for _, e := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
