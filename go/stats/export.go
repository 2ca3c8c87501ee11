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

// Package stats is a wrapper for prometheus metrics. It keeps the values in
// process so that they can be read back (for tests and status pages) and
// exposes them to prometheus through Registry.
package stats

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported metric name.
const Namespace = "vtflow"

// Registry holds the prometheus collectors of every published variable.
var Registry = prometheus.NewRegistry()

type metricKind int

const (
	counterKind metricKind = iota
	gaugeKind
)

var (
	varsMu sync.Mutex
	vars   = make(map[string]any)
)

func lookup(name string) any {
	if name == "" {
		return nil
	}
	varsMu.Lock()
	defer varsMu.Unlock()
	return vars[name]
}

// publishFunc registers a collector reading f. Unnamed variables are not exported.
func publishFunc(name, help string, kind metricKind, f func() float64, v any) {
	if name == "" {
		return
	}
	opts := prometheus.Opts{
		Namespace: Namespace,
		Name:      toSnakeCase(name),
		Help:      help,
	}
	var c prometheus.Collector
	switch kind {
	case counterKind:
		c = prometheus.NewCounterFunc(prometheus.CounterOpts(opts), f)
	default:
		c = prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts), f)
	}
	register(name, c, v)
}

func publishLabeled(name, help, label string, counts func() map[string]int64, v any) {
	if name == "" {
		return
	}
	register(name, &labeledCollector{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", toSnakeCase(name)),
			help,
			[]string{toSnakeCase(label)},
			nil),
		counts: counts,
	}, v)
}

func register(name string, c prometheus.Collector, v any) {
	varsMu.Lock()
	defer varsMu.Unlock()
	if _, ok := vars[name]; ok {
		return
	}
	vars[name] = v
	// A collision with a collector registered outside this package is not fatal:
	// the variable keeps working in process and simply isn't scraped.
	_ = Registry.Register(c)
}

type labeledCollector struct {
	desc   *prometheus.Desc
	counts func() map[string]int64
}

// Describe implements prometheus.Collector.
func (c *labeledCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *labeledCollector) Collect(ch chan<- prometheus.Metric) {
	for label, val := range c.counts() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(val), label)
	}
}
