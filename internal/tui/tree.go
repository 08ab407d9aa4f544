package tui

import (
	"fmt"
	"strings"

	"cascade.dev/cascade/internal/graph"
)

const (
	// CurrentBranchSymbol marks the checked out branch in tree views
	CurrentBranchSymbol = "◉"
	// BranchSymbol marks every other branch in tree views
	BranchSymbol = "◯"
)

// StackTreeRenderer renders the branch graph one trunk at a time, parents
// above children
type StackTreeRenderer struct {
	graph         *graph.Graph
	currentBranch string
}

// NewStackTreeRenderer creates a renderer for g. currentBranch may be empty.
func NewStackTreeRenderer(g *graph.Graph, currentBranch string) *StackTreeRenderer {
	return &StackTreeRenderer{graph: g, currentBranch: currentBranch}
}

// Render returns the lines for every trunk that has branches on it
func (r *StackTreeRenderer) Render() []string {
	var lines []string
	for _, trunk := range r.graph.Trunks() {
		lines = append(lines, r.RenderTrunk(trunk)...)
	}
	return lines
}

// RenderTrunk returns the lines for the branches stacked on trunk
func (r *StackTreeRenderer) RenderTrunk(trunk string) []string {
	lines := []string{r.label(trunk, 0)}
	r.renderChildren(trunk, "", 1, &lines)
	return lines
}

func (r *StackTreeRenderer) renderChildren(name, prefix string, depth int, lines *[]string) {
	children := r.graph.Children(name)
	for i, child := range children {
		connector, indent := "├── ", "│   "
		if i == len(children)-1 {
			connector, indent = "└── ", "    "
		}
		*lines = append(*lines, prefix+DepthColor(connector, depth)+r.label(child, depth))
		r.renderChildren(child, prefix+DepthColor(indent, depth), depth+1, lines)
	}
}

func (r *StackTreeRenderer) label(name string, depth int) string {
	symbol := BranchSymbol
	if name == r.currentBranch {
		symbol = CurrentBranchSymbol
	}

	node, ok := r.graph.Get(name)
	if !ok {
		// trunk
		text := symbol + " " + name
		if name == r.currentBranch {
			return Bold(ColorCyan(text))
		}
		return Bold(text)
	}

	text := DepthColor(symbol, depth) + " "
	if name == r.currentBranch {
		text += Bold(ColorCyan(name))
	} else {
		text += name
	}
	if node.ReviewRequestID != nil {
		text += " " + ColorDim(fmt.Sprintf("#%d", *node.ReviewRequestID))
	}
	switch node.Status {
	case graph.StatusPendingCascade:
		text += " " + ColorYellow("(needs restack)")
	case graph.StatusConflicted:
		text += " " + ColorRed("(conflicted)")
	}
	return text
}

// RenderStackTree renders the whole graph as a single string
func RenderStackTree(g *graph.Graph, currentBranch string) string {
	return strings.Join(NewStackTreeRenderer(g, currentBranch).Render(), "\n")
}
