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

package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture(t *testing.T) {
	ctx := context.Background()

	v, err := Resolved("x", nil).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	f := NewFuture(ctx, func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	<-f.Done()
	_, err = f.Result()
	assert.EqualError(t, err, "boom")

	pending, complete := Pending()
	select {
	case <-pending.Done():
		t.Fatal("pending future is done")
	default:
	}
	complete(int64(3), nil)
	v, err = pending.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestFutureWaitCanceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	f, complete := Pending()
	defer complete(nil, nil)
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeyPaths(t *testing.T) {
	assert.Equal(t, KeyString(1), KeyString(int64(1)))
	assert.NotEqual(t, KeyString(1), KeyString("1"))
	assert.Equal(t, "/vtflow/users/i42", EntryPath("/vtflow", "users", 42))
	assert.Equal(t, "/vtflow/users/sa%2Fb", EntryPath("/vtflow", "users", "a/b"))
	assert.Equal(t, "/vtflow/my%20map/", MapPath("/vtflow", "my map"))
}

func TestCodec(t *testing.T) {
	tcases := []struct {
		key, value any
	}{
		{int64(1), `{"name":"ann"}`},
		{"k", int64(-9007199254740993)},
		{true, 2.5},
		{int64(7), []byte{0, 1, 2}},
		{"m", map[string]any{"a": "b", "n": 1.0}},
		{"f", false},
		{"e", ""},
	}
	for _, tc := range tcases {
		data, err := EncodeEntry(tc.key, tc.value)
		require.NoError(t, err)
		k, v, err := DecodeEntry(data)
		require.NoError(t, err, string(data))
		assert.Equal(t, tc.key, k)
		assert.Equal(t, tc.value, v)
	}

	data, err := EncodeEntry(3, "x")
	require.NoError(t, err)
	k, _, err := DecodeEntry(data)
	require.NoError(t, err)
	assert.Equal(t, int64(3), k)

	_, err = EncodeEntry(struct{}{}, "x")
	require.Error(t, err)

	_, _, err = DecodeEntry([]byte(`{"k":{"t":"uuid"}}`))
	require.Error(t, err)
	_, _, err = DecodeEntry([]byte(`not json`))
	require.Error(t, err)
}
