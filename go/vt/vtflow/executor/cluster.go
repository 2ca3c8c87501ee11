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

// Package executor runs compiled dataflow graphs in process. A Cluster
// hosts the instances of every member it knows about, routes rows between
// them along the graph edges and delivers the result through a Cursor.
package executor

import (
	"fmt"
	"slices"
	"sync"

	"github.com/spf13/pflag"
	"google.golang.org/grpc/codes"

	"vtflow.io/vtflow/go/stats"
	"vtflow.io/vtflow/go/vt/servenv"
	"vtflow.io/vtflow/go/vt/utils"
	"vtflow.io/vtflow/go/vt/vterrors"
	"vtflow.io/vtflow/go/vt/vtflow/dag"
	"vtflow.io/vtflow/go/vt/vtflow/kvstore"
)

// DefaultLocalParallelism is the default number of instances of a parallel
// vertex on every member.
const DefaultLocalParallelism = 2

// edgeBufferSize is the capacity of every instance inbox.
const edgeBufferSize = 64

var (
	localParallelism = DefaultLocalParallelism
	members          = []string{"local"}
	localMember      string

	queriesExecuted = stats.NewCounter("QueriesExecuted", "Number of queries started")
	queryErrors     = stats.NewCounter("QueryErrors", "Number of queries that failed")
	queriesActive   = stats.NewGauge("QueriesActive", "Number of queries currently running")
	rowsEmitted     = stats.NewCountersWithSingleLabel("RowsEmitted", "Number of rows emitted, by vertex label", "Label")
)

func init() {
	servenv.OnParseFor("vtflow", registerFlags)
}

func registerFlags(fs *pflag.FlagSet) {
	utils.SetFlagIntVar(fs, &localParallelism, "local-parallelism", localParallelism, "number of instances of a parallel vertex on every member")
	utils.SetFlagStringSliceVar(fs, &members, "members", members, "names of the cluster members hosted by this process")
	utils.SetFlagStringVar(fs, &localMember, "local-member", localMember, "the member receiving queries, defaults to the first of --members")
}

// Cluster runs graphs over a fixed set of members, all hosted in process.
type Cluster struct {
	members     []string
	localMember string
	parallelism int
	stores      kvstore.Cluster

	mu      sync.Mutex
	cursors map[string]*Cursor
}

var _ dag.ResultRegistry = (*Cluster)(nil)

// NewCluster returns a cluster of the named members. Queries are received
// by localMember and every parallel vertex runs parallelism instances on
// each member.
func NewCluster(memberNames []string, localMember string, parallelism int, stores kvstore.Cluster) (*Cluster, error) {
	if len(memberNames) == 0 {
		return nil, vterrors.New(codes.InvalidArgument, "a cluster needs at least one member")
	}
	seen := make(map[string]bool, len(memberNames))
	for _, m := range memberNames {
		if m == "" {
			return nil, vterrors.New(codes.InvalidArgument, "empty member name")
		}
		if seen[m] {
			return nil, vterrors.Errorf(codes.InvalidArgument, "duplicate member %s", m)
		}
		seen[m] = true
	}
	if localMember == "" {
		localMember = memberNames[0]
	}
	if !seen[localMember] {
		return nil, vterrors.Errorf(codes.InvalidArgument, "local member %s is not one of %v", localMember, memberNames)
	}
	if parallelism < 1 {
		return nil, vterrors.Errorf(codes.InvalidArgument, "local parallelism must be positive, got %d", parallelism)
	}
	return &Cluster{
		members:     slices.Clone(memberNames),
		localMember: localMember,
		parallelism: parallelism,
		stores:      stores,
		cursors:     make(map[string]*Cursor),
	}, nil
}

// NewClusterFromFlags returns the cluster described by --members,
// --local-member and --local-parallelism.
func NewClusterFromFlags(stores kvstore.Cluster) (*Cluster, error) {
	return NewCluster(members, localMember, localParallelism, stores)
}

// Members returns the member names.
func (c *Cluster) Members() []string {
	return slices.Clone(c.members)
}

// LocalMember returns the member receiving queries. Plans executed by the
// cluster must be compiled for it.
func (c *Cluster) LocalMember() string {
	return c.localMember
}

// LocalParallelism returns the number of instances of a parallel vertex on
// every member.
func (c *Cluster) LocalParallelism() int {
	return c.parallelism
}

// Stores returns the key-value cluster the vertices read and write.
func (c *Cluster) Stores() kvstore.Cluster {
	return c.stores
}

// ResultConsumer implements dag.ResultRegistry.
func (c *Cluster) ResultConsumer(queryID string) (dag.ResultConsumer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cursor, ok := c.cursors[queryID]
	return cursor, ok
}

func (c *Cluster) register(queryID string, cursor *Cursor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cursors[queryID]; ok {
		return vterrors.Errorf(codes.AlreadyExists, "query %s is already running", queryID)
	}
	c.cursors[queryID] = cursor
	return nil
}

func (c *Cluster) unregister(queryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cursors, queryID)
}

func (c *Cluster) memberIndex(member string) (int, error) {
	i := slices.Index(c.members, member)
	if i < 0 {
		return 0, vterrors.VT13001(fmt.Sprintf("member %s is not part of the cluster %v", member, c.members))
	}
	return i, nil
}
