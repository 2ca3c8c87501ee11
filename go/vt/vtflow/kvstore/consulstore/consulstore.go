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

// Package consulstore implements kvstore on top of the consul KV API, using
// the same <root>/<map>/<key> layout as etcdstore.
package consulstore

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/hashicorp/consul/api"
	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/vt/log"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
)

// Factory is the consul kvstore.Factory implementation.
type Factory struct{}

// Create implements kvstore.Factory.
func (Factory) Create(cfg kvstore.Config) (kvstore.Cluster, error) {
	return NewCluster(cfg)
}

func init() {
	kvstore.RegisterFactory("consul", Factory{})
}

// Cluster is a consul client.
type Cluster struct {
	client *api.Client
	kv     *api.KV
	root   string
}

var _ kvstore.Cluster = (*Cluster)(nil)

// NewCluster creates a consul client for cfg.ServerAddress. Consul keys do
// not start with a slash, so a leading slash of the root is dropped.
func NewCluster(cfg kvstore.Config) (*Cluster, error) {
	conf := api.DefaultConfig()
	if cfg.ServerAddress != "" {
		conf.Address = cfg.ServerAddress
	}
	if cfg.DialTimeout > 0 {
		conf.WaitTime = cfg.DialTimeout
	}
	client, err := api.NewClient(conf)
	if err != nil {
		return nil, convertError(err, conf.Address)
	}
	log.Infof("created consul store client for %s, root %s", conf.Address, cfg.Root)
	return &Cluster{
		client: client,
		kv:     client.KV(),
		root:   strings.Trim(cfg.Root, "/"),
	}, nil
}

// Map implements kvstore.Cluster.
func (c *Cluster) Map(name string) (kvstore.Store, error) {
	return &Store{kv: c.kv, root: c.root, name: name}, nil
}

// Close implements kvstore.Cluster. The consul client holds no connection state.
func (c *Cluster) Close() error {
	return nil
}

// Store is one map stored in consul.
type Store struct {
	kv   *api.KV
	root string
	name string
}

var _ kvstore.Store = (*Store)(nil)

func (s *Store) prefix() string {
	return strings.TrimPrefix(kvstore.MapPath(s.root, s.name), "/")
}

func (s *Store) path(key any) string {
	return s.prefix() + kvstore.KeyString(key)
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key any) (any, error) {
	pair, _, err := s.kv.Get(s.path(key), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, convertError(err, s.name)
	}
	if pair == nil {
		return nil, nil
	}
	_, value, err := kvstore.DecodeEntry(pair.Value)
	return value, err
}

// GetAsync implements kvstore.Store.
func (s *Store) GetAsync(ctx context.Context, key any) *kvstore.Future {
	return kvstore.NewFuture(ctx, func(ctx context.Context) (any, error) {
		return s.Get(ctx, key)
	})
}

// Put implements kvstore.Store.
func (s *Store) Put(ctx context.Context, key, value any) error {
	opts := (&api.WriteOptions{}).WithContext(ctx)
	if value == nil {
		_, err := s.kv.Delete(s.path(key), opts)
		return convertError(err, s.name)
	}
	data, err := kvstore.EncodeEntry(key, value)
	if err != nil {
		return err
	}
	_, err = s.kv.Put(&api.KVPair{Key: s.path(key), Value: data}, opts)
	return convertError(err, s.name)
}

// Scan implements kvstore.Store. Entries are visited in key order.
func (s *Store) Scan(ctx context.Context, fn func(key, value any) error) error {
	pairs, _, err := s.kv.List(s.prefix(), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return convertError(err, s.name)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	for _, pair := range pairs {
		key, value, err := kvstore.DecodeEntry(pair.Value)
		if err != nil {
			return vterrors.Wrapf(err, "entry %s", pair.Key)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

func convertError(err error, target string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return vterrors.Wrapf(vterrors.New(codes.Unavailable, err.Error()), "consul %s", target)
}
