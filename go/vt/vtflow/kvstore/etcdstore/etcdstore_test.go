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

package etcdstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
)

func TestRequiresAddress(t *testing.T) {
	_, err := kvstore.Open("etcd", kvstore.Config{Root: "/vtflow"})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))
}

func TestStorePath(t *testing.T) {
	s := &Store{root: "/vtflow", name: "users"}
	assert.Equal(t, "/vtflow/users/i7", s.path(7))
	assert.Equal(t, "/vtflow/users/sann", s.path("ann"))
}

func TestConvertError(t *testing.T) {
	assert.NoError(t, convertError(nil, "m"))
	assert.ErrorIs(t, convertError(context.Canceled, "m"), context.Canceled)

	err := convertError(errors.New("connection refused"), "users")
	assert.Equal(t, codes.Unavailable, vterrors.Code(err))
	assert.EqualError(t, err, "etcd users: connection refused")
}
