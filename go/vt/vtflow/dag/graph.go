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

// Package dag is the executable form of a query: vertices that process rows
// and edges that route rows between them.
package dag

import (
	"fmt"
	"strconv"

	"vtflow.io/vtflow/go/sqltypes"
	"vtflow.io/vtflow/go/vt/vterrors"
)

// PlacementKind tells how many instances of a vertex run.
type PlacementKind int8

const (
	// Parallel runs the configured local parallelism on every member.
	Parallel PlacementKind = iota
	// SingleInstance runs exactly one instance, on one member.
	SingleInstance
)

// Placement is where the instances of a vertex run.
type Placement struct {
	Kind   PlacementKind
	Member string
}

// ParallelPlacement returns the default placement.
func ParallelPlacement() Placement {
	return Placement{Kind: Parallel}
}

// SingleInstanceOn returns a placement forcing one instance on member.
func SingleInstanceOn(member string) Placement {
	return Placement{Kind: SingleInstance, Member: member}
}

func (p Placement) String() string {
	if p.Kind == SingleInstance {
		return "single(" + p.Member + ")"
	}
	return "parallel"
}

// Vertex is a processing step of the graph. Vertices are not modified once
// added to a graph.
type Vertex struct {
	ID    int
	Name  string
	Label string
	// Supplier creates the instances of the vertex.
	Supplier  ProcessorSupplier
	Placement Placement
}

func (v *Vertex) String() string {
	return v.Name
}

// IsSource reports whether the vertex produces rows without any input.
func (v *Vertex) IsSource() bool {
	s, ok := v.Supplier.(Source)
	return ok && s.IsSource()
}

// PolicyKind is the routing discipline of an edge.
type PolicyKind int8

const (
	// LocalPolicy keeps rows on the member that produced them.
	LocalPolicy PolicyKind = iota
	// PartitionedPolicy sends rows with equal keys to the same instance.
	PartitionedPolicy
	// AllToOnePolicy sends every row to a single instance on one member.
	AllToOnePolicy
)

// KeyFn computes the partitioning key of a row.
type KeyFn func(row sqltypes.Row) (string, error)

// RoutingPolicy is carried by an edge.
type RoutingPolicy struct {
	Kind PolicyKind
	// KeyFn and KeyName are set for partitioned edges.
	KeyFn   KeyFn
	KeyName string
	// Distributed partitions across the whole cluster instead of the local member.
	Distributed bool
	// Member is the target of an all-to-one edge.
	Member string
}

func (p RoutingPolicy) String() string {
	switch p.Kind {
	case PartitionedPolicy:
		scope := "local"
		if p.Distributed {
			scope = "distributed"
		}
		return "partitioned-" + scope + "(" + p.KeyName + ")"
	case AllToOnePolicy:
		return "all-to-one(" + p.Member + ")"
	default:
		return "local"
	}
}

// Edge connects the output of From to the input of To.
type Edge struct {
	From, To *Vertex
	Policy   RoutingPolicy
}

// Between returns a local edge from one vertex to another.
func Between(from, to *Vertex) *Edge {
	return &Edge{From: from, To: to}
}

// Partitioned makes the edge route rows by key to the instances of the
// destination on the producing member.
func (e *Edge) Partitioned(name string, keyFn KeyFn) *Edge {
	e.Policy = RoutingPolicy{Kind: PartitionedPolicy, KeyFn: keyFn, KeyName: name}
	return e
}

// Distributed extends a partitioned edge to the instances of every member.
func (e *Edge) Distributed() *Edge {
	e.Policy.Distributed = true
	return e
}

// AllToOne makes the edge deliver every row to one instance on member.
func (e *Edge) AllToOne(member string) *Edge {
	e.Policy = RoutingPolicy{Kind: AllToOnePolicy, Member: member}
	return e
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s -> %s [%s]", e.From, e.To, e.Policy)
}

// Graph is a directed acyclic graph of vertices. It is built by a single
// goroutine and read-only afterwards.
type Graph struct {
	vertices []*Vertex
	byName   map[string]*Vertex
	edges    []*Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{byName: make(map[string]*Vertex)}
}

// NewUniqueVertex adds a vertex named after name, suffixed with -2, -3, ...
// when the name is taken.
func (g *Graph) NewUniqueVertex(name, label string, supplier ProcessorSupplier, placement Placement) *Vertex {
	unique := name
	for i := 2; g.byName[unique] != nil; i++ {
		unique = name + "-" + strconv.Itoa(i)
	}
	v := &Vertex{
		ID:        len(g.vertices),
		Name:      unique,
		Label:     label,
		Supplier:  supplier,
		Placement: placement,
	}
	g.vertices = append(g.vertices, v)
	g.byName[unique] = v
	return v
}

// AddEdge registers an edge between two vertices of the graph.
func (g *Graph) AddEdge(e *Edge) error {
	if e.From == nil || e.To == nil {
		return vterrors.VT13001("edge with a missing endpoint")
	}
	if g.byName[e.From.Name] != e.From || g.byName[e.To.Name] != e.To {
		return vterrors.VT13001(fmt.Sprintf("edge %s references a vertex outside the graph", e))
	}
	if e.Policy.Kind == PartitionedPolicy && e.Policy.KeyFn == nil {
		return vterrors.VT13001(fmt.Sprintf("partitioned edge %s has no key function", e))
	}
	g.edges = append(g.edges, e)
	return nil
}

// Vertices returns the vertices in creation order.
func (g *Graph) Vertices() []*Vertex {
	return g.vertices
}

// Vertex returns the named vertex, or nil.
func (g *Graph) Vertex(name string) *Vertex {
	return g.byName[name]
}

// Edges returns the edges in creation order.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// Inbound returns the edges ending at v.
func (g *Graph) Inbound(v *Vertex) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.To == v {
			out = append(out, e)
		}
	}
	return out
}

// Outbound returns the edges starting at v.
func (g *Graph) Outbound(v *Vertex) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.From == v {
			out = append(out, e)
		}
	}
	return out
}

// Root returns the only vertex without outbound edges. Call Validate first.
func (g *Graph) Root() *Vertex {
	for _, v := range g.vertices {
		if len(g.Outbound(v)) == 0 {
			return v
		}
	}
	return nil
}

// Sources returns the vertices without inbound edges.
func (g *Graph) Sources() []*Vertex {
	var out []*Vertex
	for _, v := range g.vertices {
		if len(g.Inbound(v)) == 0 {
			out = append(out, v)
		}
	}
	return out
}

// TopologicalOrder returns the vertices so that every edge goes forward.
func (g *Graph) TopologicalOrder() ([]*Vertex, error) {
	indegree := make(map[*Vertex]int, len(g.vertices))
	for _, e := range g.edges {
		indegree[e.To]++
	}
	var queue, order []*Vertex
	for _, v := range g.vertices {
		if indegree[v] == 0 {
			queue = append(queue, v)
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, e := range g.Outbound(v) {
			indegree[e.To]--
			if indegree[e.To] == 0 {
				queue = append(queue, e.To)
			}
		}
	}
	if len(order) != len(g.vertices) {
		return nil, vterrors.VT13001("the graph has a cycle")
	}
	return order, nil
}

// Validate checks the structural invariants of a compiled graph: it is
// acyclic, it has exactly one root, every other vertex has exactly one
// outbound edge, single-instance vertices are only fed by all-to-one edges
// converging on their member, and only source vertices lack an input.
func (g *Graph) Validate() error {
	if len(g.vertices) == 0 {
		return vterrors.VT13001("empty graph")
	}
	if _, err := g.TopologicalOrder(); err != nil {
		return err
	}
	var roots []string
	for _, v := range g.vertices {
		switch out := len(g.Outbound(v)); {
		case out == 0:
			roots = append(roots, v.Name)
		case out > 1:
			return vterrors.VT13001(fmt.Sprintf("vertex %s has %d outbound edges", v.Name, out))
		}
		if v.Placement.Kind != SingleInstance {
			continue
		}
		for _, e := range g.Inbound(v) {
			if e.Policy.Kind != AllToOnePolicy || e.Policy.Member != v.Placement.Member {
				return vterrors.VT13001(fmt.Sprintf("single-instance vertex %s on %s is fed by %s", v.Name, v.Placement.Member, e))
			}
		}
	}
	if len(roots) != 1 {
		return vterrors.VT13001(fmt.Sprintf("expected one root vertex, found %v", roots))
	}
	for _, v := range g.Sources() {
		if !v.IsSource() {
			return vterrors.VT13001(fmt.Sprintf("vertex %s has no inbound edge", v.Name))
		}
	}
	return nil
}
