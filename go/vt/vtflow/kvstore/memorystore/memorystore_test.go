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

package memorystore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
)

func TestRegistered(t *testing.T) {
	c, err := kvstore.Open("memory", kvstore.Config{})
	require.NoError(t, err)
	defer c.Close()
	assert.Contains(t, kvstore.Implementations(), "memory")

	_, err = kvstore.Open("cassandra", kvstore.Config{})
	require.Error(t, err)
}

func TestGetPut(t *testing.T) {
	ctx := context.Background()
	c := NewCluster()
	m, err := c.Map("users")
	require.NoError(t, err)

	v, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, m.Put(ctx, 1, `{"name":"ann"}`))
	// int and int64 keys are the same key
	v, err = m.Get(ctx, int64(1))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"ann"}`, v)

	v, err = m.GetAsync(ctx, 1).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"ann"}`, v)

	require.NoError(t, m.Put(ctx, 1, `{"name":"bob"}`))
	v, err = m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"bob"}`, v)

	require.NoError(t, m.Put(ctx, 1, nil))
	v, err = m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 0, c.Store("users").Len())

	// maps are independent
	other, err := c.Map("orders")
	require.NoError(t, err)
	require.NoError(t, other.Put(ctx, 1, "x"))
	v, err = m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestScan(t *testing.T) {
	ctx := context.Background()
	s := NewCluster().Store("m")
	for i, v := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, i, v))
	}
	require.NoError(t, s.Put(ctx, 1, nil))

	var keys, values []any
	require.NoError(t, s.Scan(ctx, func(k, v any) error {
		keys = append(keys, k)
		values = append(values, v)
		return nil
	}))
	assert.Equal(t, []any{int64(0), int64(2)}, keys)
	assert.Equal(t, []any{"a", "c"}, values)

	stop := errors.New("stop")
	calls := 0
	err := s.Scan(ctx, func(k, v any) error {
		calls++
		return stop
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 1, calls)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewCluster().Store("m")
	_, err := s.Get(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Put(ctx, 1, "x"), context.Canceled)
}
