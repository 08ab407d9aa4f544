package graph

import (
	"encoding/json"
	"fmt"
	"sort"

	cascadeerrors "cascade.dev/cascade/internal/errors"
)

// DocumentVersion is the current persisted graph format
const DocumentVersion = 1

// Document is the persisted form of a graph
type Document struct {
	Version  int                     `json:"version" yaml:"version"`
	Branches map[string]BranchRecord `json:"branches" yaml:"branches"`
}

// BranchRecord is the persisted form of a node
type BranchRecord struct {
	Parent          string `json:"parent" yaml:"parent"`
	ForkPoint       string `json:"forkPoint,omitempty" yaml:"forkPoint,omitempty"`
	Tip             string `json:"tip,omitempty" yaml:"tip,omitempty"`
	ReviewRequestID *int   `json:"reviewRequestId,omitempty" yaml:"reviewRequestId,omitempty"`
	Status          Status `json:"status" yaml:"status"`
}

// Document returns the persisted form of g
func (g *Graph) Document() Document {
	doc := Document{
		Version:  DocumentVersion,
		Branches: make(map[string]BranchRecord, len(g.nodes)),
	}
	for name, node := range g.nodes {
		n := copyNode(node)
		doc.Branches[name] = BranchRecord{
			Parent:          n.Parent,
			ForkPoint:       n.ForkPoint,
			Tip:             n.Tip,
			ReviewRequestID: n.ReviewRequestID,
			Status:          n.Status,
		}
	}
	return doc
}

// MarshalJSON encodes the graph as a Document
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Document())
}

// FromDocument rebuilds a graph, validating every edge the same way Track does
func FromDocument(doc Document, isTrunk func(string) bool) (*Graph, error) {
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("graph format version %d is newer than supported version %d", doc.Version, DocumentVersion)
	}

	g := New(isTrunk)
	pending := make([]string, 0, len(doc.Branches))
	for name := range doc.Branches {
		pending = append(pending, name)
	}
	sort.Strings(pending)

	// Insert parents before children; anything left over points at an
	// unknown parent or forms a cycle.
	for len(pending) > 0 {
		var next []string
		for _, name := range pending {
			rec := doc.Branches[name]
			_, isNode := doc.Branches[rec.Parent]
			if isNode && !g.Has(rec.Parent) {
				next = append(next, name)
				continue
			}
			if err := g.Track(name, rec.Parent); err != nil {
				return nil, fmt.Errorf("invalid graph entry %s: %w", name, err)
			}
			node := g.nodes[name]
			node.Tip = rec.Tip
			node.ForkPoint = rec.ForkPoint
			node.Status = rec.Status
			if rec.ReviewRequestID != nil {
				v := *rec.ReviewRequestID
				node.ReviewRequestID = &v
			}
		}
		if len(next) == len(pending) {
			return nil, fmt.Errorf("invalid graph entry %s: %w", next[0], cascadeerrors.ErrCyclicDependency)
		}
		pending = next
	}

	conflicted := 0
	for _, node := range g.nodes {
		if node.Status == StatusConflicted {
			conflicted++
		}
	}
	if conflicted > 1 {
		return nil, cascadeerrors.ErrConflictInProgress
	}
	return g, nil
}

// Unmarshal decodes a persisted graph. Empty input yields an empty graph.
func Unmarshal(data []byte, isTrunk func(string) bool) (*Graph, error) {
	if len(data) == 0 {
		return New(isTrunk), nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}
	return FromDocument(doc, isTrunk)
}
