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

package stats

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Counter is a monotonically increasing int64 exported to prometheus.
type Counter struct {
	i    atomic.Int64
	help string
}

// NewCounter returns a new Counter. A Counter with the same name that was
// created earlier is returned as is.
func NewCounter(name string, help string) *Counter {
	if existing, ok := lookup(name).(*Counter); ok {
		return existing
	}
	v := &Counter{help: help}
	publishFunc(name, help, counterKind, func() float64 { return float64(v.Get()) }, v)
	return v
}

// Add adds the provided value to the Counter
func (v *Counter) Add(delta int64) {
	v.i.Add(delta)
}

// Reset resets the counter value to 0
func (v *Counter) Reset() {
	v.i.Store(0)
}

// Get returns the value
func (v *Counter) Get() int64 {
	return v.i.Load()
}

// Help returns the help string
func (v *Counter) Help() string {
	return v.help
}

// Gauge is an unlabeled metric whose values can go up/down.
type Gauge struct {
	Counter
}

// NewGauge creates a new Gauge and publishes it if name is set
func NewGauge(name string, help string) *Gauge {
	if existing, ok := lookup(name).(*Gauge); ok {
		return existing
	}
	v := &Gauge{Counter: Counter{help: help}}
	publishFunc(name, help, gaugeKind, func() float64 { return float64(v.Get()) }, v)
	return v
}

// Set sets the value
func (v *Gauge) Set(value int64) {
	v.i.Store(value)
}

// CountersWithSingleLabel tracks multiple counts keyed by the value of one label.
type CountersWithSingleLabel struct {
	mu     sync.RWMutex
	counts map[string]*atomic.Int64
	label  string
	help   string
}

// NewCountersWithSingleLabel returns a new CountersWithSingleLabel.
func NewCountersWithSingleLabel(name, help, label string) *CountersWithSingleLabel {
	if existing, ok := lookup(name).(*CountersWithSingleLabel); ok {
		return existing
	}
	c := &CountersWithSingleLabel{
		counts: make(map[string]*atomic.Int64),
		label:  label,
		help:   help,
	}
	publishLabeled(name, help, label, c.Counts, c)
	return c
}

func (c *CountersWithSingleLabel) counter(name string) *atomic.Int64 {
	c.mu.RLock()
	a, ok := c.counts[name]
	c.mu.RUnlock()
	if ok {
		return a
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.counts[name]; ok {
		return a
	}
	a = new(atomic.Int64)
	c.counts[name] = a
	return a
}

// Add adds a value to a named counter.
func (c *CountersWithSingleLabel) Add(name string, value int64) {
	c.counter(name).Add(value)
}

// Counts returns a copy of the Counters' map.
func (c *CountersWithSingleLabel) Counts() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[string]int64, len(c.counts))
	for k, a := range c.counts {
		counts[k] = a.Load()
	}
	return counts
}

// LabelName returns the label name.
func (c *CountersWithSingleLabel) LabelName() string {
	return c.label
}

// Keys returns the label values seen so far, sorted.
func (c *CountersWithSingleLabel) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.counts))
	for k := range c.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
