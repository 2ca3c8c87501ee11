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

// Package engine holds the processors that run the vertices of a compiled
// query: sources, row-at-a-time transforms, aggregations, the client sink
// and the enrichment join.
package engine

import (
	"context"

	"github.com/spf13/pflag"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/stats"
	"vtflow.io/vtflow/go/vt/servenv"
	"vtflow.io/vtflow/go/vt/utils"
	"vtflow.io/vtflow/go/vt/vterrors"
)

// DefaultMaxConcurrentOps is the default number of lookups an enrichment
// join instance keeps in flight.
const DefaultMaxConcurrentOps = 8

var (
	maxConcurrentOps = DefaultMaxConcurrentOps

	joinLookups       = stats.NewCounter("EnrichmentJoinLookups", "Number of key-value lookups issued by enrichment joins")
	joinLookupErrors  = stats.NewCounter("EnrichmentJoinLookupErrors", "Number of failed enrichment join lookups")
	joinLookupsFlight = stats.NewGauge("EnrichmentJoinLookupsInFlight", "Number of enrichment join lookups currently in flight")
	joinNullKeys      = stats.NewCounter("EnrichmentJoinNullKeys", "Number of enrichment join rows with a NULL key, answered without a lookup")
)

func init() {
	servenv.OnParseFor("vtflow", registerFlags)
}

func registerFlags(fs *pflag.FlagSet) {
	utils.SetFlagIntVar(fs, &maxConcurrentOps, "join-max-concurrent-ops", maxConcurrentOps, "maximum number of in-flight lookups per enrichment join instance")
}

// MaxConcurrentOps returns the configured enrichment join window.
func MaxConcurrentOps() int {
	if maxConcurrentOps < 1 {
		return 1
	}
	return maxConcurrentOps
}

// drain calls fn for every row of the inbox until it is closed, fn fails or
// ctx is done.
func drain(ctx context.Context, inbox <-chan sqltypes.Row, fn func(row sqltypes.Row) error) error {
	for {
		select {
		case <-ctx.Done():
			return vterrors.Canceled(ctx)
		case row, ok := <-inbox:
			if !ok {
				return nil
			}
			if err := fn(row); err != nil {
				return err
			}
		}
	}
}
