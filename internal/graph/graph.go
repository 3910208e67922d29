package graph

import (
	"fmt"
	"path/filepath"
)

// Graph is a directed graph of repository entities.
// Insertions are idempotent; nothing is ever removed. A Graph is not safe
// for concurrent mutation.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[Edge]struct{}
	edgeOrder []Edge
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[Edge]struct{}),
	}
}

// AddNode inserts a node if it doesn't already exist and returns the stored node.
// An existing node is never modified. If it exists with another kind, the
// existing node is returned together with ErrKindConflict.
func (g *Graph) AddNode(id string, kind Kind, commit *CommitInfo) (*Node, error) {
	if n, ok := g.nodes[id]; ok {
		if n.Kind != kind {
			return n, fmt.Errorf("%w: %q is %s, not %s", ErrKindConflict, id, n.Kind, kind)
		}
		return n, nil
	}

	n := &Node{ID: id, Kind: kind}
	if kind == KindCommit {
		info := CommitInfo{}
		if commit != nil {
			info = *commit
		}
		n.Commit = &info
	}
	g.nodes[id] = n
	g.nodeOrder = append(g.nodeOrder, id)
	return n, nil
}

// AddRepository ensures a repository node.
func (g *Graph) AddRepository(id string) error {
	_, err := g.AddNode(id, KindRepository, nil)
	return err
}

// AddCommit ensures a commit node. Attributes of an existing commit are kept.
func (g *Graph) AddCommit(hash string, info CommitInfo) error {
	_, err := g.AddNode(hash, KindCommit, &info)
	return err
}

// AddFolder ensures a folder node.
func (g *Graph) AddFolder(path string) error {
	_, err := g.AddNode(path, KindFolder, nil)
	return err
}

// AddFile ensures a file node.
func (g *Graph) AddFile(path string) error {
	_, err := g.AddNode(path, KindFile, nil)
	return err
}

// AddEdge inserts an edge if it doesn't already exist. Missing endpoints are
// created with the kinds the relation implies. Existing endpoints keep their
// kind even when it differs from that guess.
func (g *Graph) AddEdge(src, dst string, rel Relation) error {
	srcKind, dstKind := rel.Endpoints()
	if _, ok := g.nodes[src]; !ok {
		g.AddNode(src, srcKind, nil)
	}
	if _, ok := g.nodes[dst]; !ok {
		g.AddNode(dst, dstKind, nil)
	}

	e := Edge{Src: src, Dst: dst, Relation: rel}
	if _, ok := g.edges[e]; ok {
		return nil
	}
	g.edges[e] = struct{}{}
	g.edgeOrder = append(g.edgeOrder, e)
	return nil
}

// AddFileToFolder links a file to its parent directory.
func (g *Graph) AddFileToFolder(path string) error {
	dir := filepath.Dir(path)
	if err := g.AddFolder(dir); err != nil {
		return err
	}
	if err := g.AddFile(path); err != nil {
		return err
	}
	return g.AddEdge(dir, path, RelContains)
}

// AddReference records that src imports dst. Both become file nodes if absent.
func (g *Graph) AddReference(src, dst string) error {
	if err := g.AddFile(src); err != nil {
		return err
	}
	if err := g.AddFile(dst); err != nil {
		return err
	}
	return g.AddEdge(src, dst, RelReferences)
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// HasEdge reports whether the edge exists.
func (g *Graph) HasEdge(src, dst string, rel Relation) bool {
	_, ok := g.edges[Edge{Src: src, Dst: dst, Relation: rel}]
	return ok
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodesOfKind returns the nodes of one kind in insertion order.
func (g *Graph) NodesOfKind(kind Kind) []*Node {
	var out []*Node
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edgeOrder))
	copy(out, g.edgeOrder)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Merge adds every node and edge of other that g does not have yet.
// Kind conflicts keep g's node; the number of conflicts is returned.
func (g *Graph) Merge(other *Graph) int {
	conflicts := 0
	for _, n := range other.Nodes() {
		if _, err := g.AddNode(n.ID, n.Kind, n.Commit); err != nil {
			conflicts++
		}
	}
	for _, e := range other.edgeOrder {
		g.AddEdge(e.Src, e.Dst, e.Relation)
	}
	return conflicts
}
