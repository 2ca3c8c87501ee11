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

package dag

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Describe renders the vertices and the edges of the graph as two tables.
func (g *Graph) Describe(w io.Writer) error {
	vertices := tablewriter.NewWriter(w)
	vertices.Header("ID", "Vertex", "Label", "Placement")
	for _, v := range g.vertices {
		if err := vertices.Append([]string{strconv.Itoa(v.ID), v.Name, v.Label, v.Placement.String()}); err != nil {
			return err
		}
	}
	if err := vertices.Render(); err != nil {
		return err
	}

	edges := tablewriter.NewWriter(w)
	edges.Header("From", "To", "Routing")
	for _, e := range g.edges {
		if err := edges.Append([]string{e.From.Name, e.To.Name, e.Policy.String()}); err != nil {
			return err
		}
	}
	return edges.Render()
}

// Summary is a comparable description of a graph, used by tests and logs.
type Summary struct {
	Vertices []VertexSummary
	Edges    []EdgeSummary
}

// VertexSummary describes one vertex.
type VertexSummary struct {
	Name      string
	Label     string
	Placement string
}

// EdgeSummary describes one edge.
type EdgeSummary struct {
	From, To string
	Routing  string
}

// Summarize returns the Summary of the graph.
func (g *Graph) Summarize() Summary {
	var s Summary
	for _, v := range g.vertices {
		s.Vertices = append(s.Vertices, VertexSummary{Name: v.Name, Label: v.Label, Placement: v.Placement.String()})
	}
	for _, e := range g.edges {
		s.Edges = append(s.Edges, EdgeSummary{From: e.From.Name, To: e.To.Name, Routing: e.Policy.String()})
	}
	return s
}
