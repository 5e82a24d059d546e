// Package graph models the declared relationship set as a general adjacency
// graph over entity indices. Relationship sets may be cyclic; every traversal
// uses an explicit visited set so cycles never cause non-termination.
package graph

import (
	"sort"

	"github.com/fraudsight/crosscheck/pkg/models"
)

// Edge is one declared relationship resolved to entity indices.
type Edge struct {
	Source       int
	Target       int
	Relationship models.EntityRelationship
}

// Graph is an adjacency-list view of the relationship set. Directed edges
// produce one adjacency entry; bidirectional edges produce two. Construction
// ignores edges referencing unknown entities — the validator rejects those
// before a graph is ever built.
type Graph struct {
	ids    []string
	index  map[string]int
	adj    [][]int
	edges  []Edge
	degree []int
}

// New builds a graph over the given entity ids and relationships.
func New(entityIDs []string, relationships []models.EntityRelationship) *Graph {
	g := &Graph{
		ids:    append([]string(nil), entityIDs...),
		index:  make(map[string]int, len(entityIDs)),
		adj:    make([][]int, len(entityIDs)),
		degree: make([]int, len(entityIDs)),
	}
	for i, id := range entityIDs {
		g.index[id] = i
	}
	for _, rel := range relationships {
		src, okS := g.index[rel.SourceID]
		dst, okT := g.index[rel.TargetID]
		if !okS || !okT || src == dst {
			continue
		}
		g.edges = append(g.edges, Edge{Source: src, Target: dst, Relationship: rel})
		g.adj[src] = append(g.adj[src], dst)
		g.degree[src]++
		g.degree[dst]++
		if rel.Bidirectional {
			g.adj[dst] = append(g.adj[dst], src)
		}
	}
	return g
}

// Len returns the number of entities.
func (g *Graph) Len() int { return len(g.ids) }

// Edges returns all resolved edges in declaration order.
func (g *Graph) Edges() []Edge { return g.edges }

// ID returns the entity id at index i.
func (g *Graph) ID(i int) string { return g.ids[i] }

// Neighbors returns the ids reachable from the given entity by one hop,
// treating every edge as undirected (correlation is symmetric).
func (g *Graph) Neighbors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	seen := make(map[int]struct{})
	for _, e := range g.edges {
		switch i {
		case e.Source:
			seen[e.Target] = struct{}{}
		case e.Target:
			seen[e.Source] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for j := range seen {
		out = append(out, g.ids[j])
	}
	sort.Strings(out)
	return out
}

// Components returns the connected components of the undirected view, each
// sorted by entity id, components ordered by their smallest member. BFS with
// an explicit visited set keeps this terminating on cyclic graphs.
func (g *Graph) Components() [][]string {
	visited := make([]bool, len(g.ids))

	undirected := make([][]int, len(g.ids))
	for _, e := range g.edges {
		undirected[e.Source] = append(undirected[e.Source], e.Target)
		undirected[e.Target] = append(undirected[e.Target], e.Source)
	}

	var components [][]string
	for start := range g.ids {
		if visited[start] {
			continue
		}
		var member []string
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			member = append(member, g.ids[node])
			for _, next := range undirected[node] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		sort.Strings(member)
		components = append(components, member)
	}

	sort.Slice(components, func(a, b int) bool {
		return components[a][0] < components[b][0]
	})
	return components
}

// Density returns the edge density of the undirected view: edges divided by
// the maximum possible edge count, in [0,1]. A graph with fewer than two
// entities has density 0.
func (g *Graph) Density() float64 {
	n := len(g.ids)
	if n < 2 {
		return 0
	}
	maxEdges := float64(n*(n-1)) / 2
	d := float64(len(g.edges)) / maxEdges
	if d > 1 {
		d = 1
	}
	return d
}
