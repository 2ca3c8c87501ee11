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

// Package etcdstore implements kvstore on top of etcd. Each map is a key
// prefix under the configured root: <root>/<map>/<key>.
package etcdstore

import (
	"context"
	"errors"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/vt/log"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
)

// Factory is the etcd kvstore.Factory implementation.
type Factory struct{}

// Create implements kvstore.Factory.
func (Factory) Create(cfg kvstore.Config) (kvstore.Cluster, error) {
	return NewCluster(cfg)
}

func init() {
	kvstore.RegisterFactory("etcd", Factory{})
}

// Cluster is a connection to an etcd cluster.
type Cluster struct {
	cli  *clientv3.Client
	root string
}

var _ kvstore.Cluster = (*Cluster)(nil)

// NewCluster connects to the comma separated endpoints of cfg.ServerAddress.
func NewCluster(cfg kvstore.Config) (*Cluster, error) {
	if cfg.ServerAddress == "" {
		return nil, vterrors.New(codes.InvalidArgument, "etcd store requires --store-server-address")
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   strings.Split(cfg.ServerAddress, ","),
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, convertError(err, cfg.ServerAddress)
	}
	log.Infof("connected to etcd store at %s, root %s", cfg.ServerAddress, cfg.Root)
	return &Cluster{cli: cli, root: strings.TrimSuffix(cfg.Root, "/")}, nil
}

// Map implements kvstore.Cluster.
func (c *Cluster) Map(name string) (kvstore.Store, error) {
	return &Store{cli: c.cli, root: c.root, name: name}, nil
}

// Close implements kvstore.Cluster.
func (c *Cluster) Close() error {
	return c.cli.Close()
}

// Store is one map stored in etcd.
type Store struct {
	cli  *clientv3.Client
	root string
	name string
}

var _ kvstore.Store = (*Store)(nil)

func (s *Store) path(key any) string {
	return kvstore.EntryPath(s.root, s.name, key)
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key any) (any, error) {
	resp, err := s.cli.Get(ctx, s.path(key))
	if err != nil {
		return nil, convertError(err, s.name)
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	_, value, err := kvstore.DecodeEntry(resp.Kvs[0].Value)
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
	if value == nil {
		_, err := s.cli.Delete(ctx, s.path(key))
		return convertError(err, s.name)
	}
	data, err := kvstore.EncodeEntry(key, value)
	if err != nil {
		return err
	}
	_, err = s.cli.Put(ctx, s.path(key), string(data))
	return convertError(err, s.name)
}

// Scan implements kvstore.Store. Entries are visited in key order.
func (s *Store) Scan(ctx context.Context, fn func(key, value any) error) error {
	resp, err := s.cli.Get(ctx, kvstore.MapPath(s.root, s.name), clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return convertError(err, s.name)
	}
	for _, kv := range resp.Kvs {
		key, value, err := kvstore.DecodeEntry(kv.Value)
		if err != nil {
			return vterrors.Wrapf(err, "entry %s", kv.Key)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

// convertError maps etcd client errors onto vterrors codes. Context errors
// are returned as is.
func convertError(err error, target string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return vterrors.Wrapf(vterrors.New(codes.Unavailable, err.Error()), "etcd %s", target)
}
