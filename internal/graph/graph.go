package graph

import (
	"sort"

	cascadeerrors "cascade.dev/cascade/internal/errors"
)

// Graph is the forest of managed branches
type Graph struct {
	isTrunk     func(string) bool
	nodes       map[string]*Node
	childrenMap map[string][]string // parent (node or trunk) -> sorted children
}

// New creates an empty graph. isTrunk reports whether a name is an allowed
// trunk ref that managed branches may be stacked on.
func New(isTrunk func(string) bool) *Graph {
	if isTrunk == nil {
		isTrunk = func(string) bool { return false }
	}
	return &Graph{
		isTrunk:     isTrunk,
		nodes:       make(map[string]*Node),
		childrenMap: make(map[string][]string),
	}
}

// IsTrunk reports whether name is an allowed trunk
func (g *Graph) IsTrunk(name string) bool {
	return g.isTrunk(name)
}

// Track adds name as a new node stacked on parent
func (g *Graph) Track(name, parent string) error {
	if g.isTrunk(name) {
		return cascadeerrors.ErrTrunkOperation
	}
	if err := g.validateParent(name, parent); err != nil {
		return err
	}
	if _, ok := g.nodes[name]; ok {
		return cascadeerrors.ErrBranchAlreadyTracked
	}

	g.nodes[name] = &Node{
		Name:   name,
		Parent: parent,
		Status: StatusPendingCascade,
	}
	g.addChild(parent, name)
	return nil
}

// Reparent moves name onto newParent. The fork point is reset because it was
// relative to the old parent.
func (g *Graph) Reparent(name, newParent string) error {
	if g.isTrunk(name) {
		return cascadeerrors.ErrTrunkOperation
	}
	node, ok := g.nodes[name]
	if !ok {
		return cascadeerrors.NewBranchNotFoundError(name)
	}
	if err := g.validateParent(name, newParent); err != nil {
		return err
	}

	g.removeChild(node.Parent, name)
	node.Parent = newParent
	node.ForkPoint = ""
	node.Status = StatusPendingCascade
	g.addChild(newParent, name)
	return nil
}

func (g *Graph) validateParent(name, parent string) error {
	if parent == name {
		return cascadeerrors.NewCyclicDependencyError(name, parent)
	}
	if _, ok := g.nodes[name]; ok {
		for _, d := range g.Descendants(name) {
			if d == parent {
				return cascadeerrors.NewCyclicDependencyError(name, parent)
			}
		}
	}
	if _, ok := g.nodes[parent]; !ok && !g.isTrunk(parent) {
		return cascadeerrors.NewUnknownParentError(name, parent)
	}
	return nil
}

// Remove deletes a node that has no children
func (g *Graph) Remove(name string) error {
	node, ok := g.nodes[name]
	if !ok {
		return cascadeerrors.NewBranchNotFoundError(name)
	}
	if children := g.childrenMap[name]; len(children) > 0 {
		return cascadeerrors.NewDanglingChildrenError(name, append([]string(nil), children...))
	}
	g.removeChild(node.Parent, name)
	delete(g.nodes, name)
	delete(g.childrenMap, name)
	return nil
}

// RemovePromote re-parents the children of name onto its parent, then
// removes it. The promoted children are returned.
func (g *Graph) RemovePromote(name string) ([]string, error) {
	node, ok := g.nodes[name]
	if !ok {
		return nil, cascadeerrors.NewBranchNotFoundError(name)
	}
	children := g.Children(name)
	for _, child := range children {
		if err := g.Reparent(child, node.Parent); err != nil {
			return nil, err
		}
	}
	if err := g.Remove(name); err != nil {
		return nil, err
	}
	return children, nil
}

// Get returns a copy of the node named name
func (g *Graph) Get(name string) (Node, bool) {
	node, ok := g.nodes[name]
	if !ok {
		return Node{}, false
	}
	return copyNode(node), true
}

// Has reports whether name is a managed node
func (g *Graph) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Names returns all node names sorted
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Roots returns the sorted names of nodes stacked directly on a trunk
func (g *Graph) Roots() []string {
	var roots []string
	for name, node := range g.nodes {
		if _, ok := g.nodes[node.Parent]; !ok {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	return roots
}

// Trunks returns the sorted trunk names that have at least one node on them
func (g *Graph) Trunks() []string {
	seen := make(map[string]bool)
	var trunks []string
	for _, root := range g.Roots() {
		parent := g.nodes[root].Parent
		if !seen[parent] {
			seen[parent] = true
			trunks = append(trunks, parent)
		}
	}
	sort.Strings(trunks)
	return trunks
}

// Children returns the lexicographically sorted children of name.
// name may be a node or a trunk.
func (g *Graph) Children(name string) []string {
	children := g.childrenMap[name]
	if len(children) == 0 {
		return []string{}
	}
	return append([]string(nil), children...)
}

// Descendants returns every node below name in depth-first preorder, so a
// parent always comes before its children. name itself is not included.
func (g *Graph) Descendants(name string) []string {
	result := []string{}
	g.collectDescendants(name, &result)
	return result
}

func (g *Graph) collectDescendants(name string, result *[]string) {
	for _, child := range g.childrenMap[name] {
		*result = append(*result, child)
		g.collectDescendants(child, result)
	}
}

// SetTip records the current tip of name
func (g *Graph) SetTip(name, tip string) error {
	node, ok := g.nodes[name]
	if !ok {
		return cascadeerrors.NewBranchNotFoundError(name)
	}
	node.Tip = tip
	return nil
}

// SetReviewRequest links or unlinks a pull request number
func (g *Graph) SetReviewRequest(name string, id *int) error {
	node, ok := g.nodes[name]
	if !ok {
		return cascadeerrors.NewBranchNotFoundError(name)
	}
	if id == nil {
		node.ReviewRequestID = nil
		return nil
	}
	v := *id
	node.ReviewRequestID = &v
	return nil
}

// Advance records a successful cascade step: the new tip, the parent commit it
// now sits on, and a clean status.
func (g *Graph) Advance(name, tip, forkPoint string) error {
	node, ok := g.nodes[name]
	if !ok {
		return cascadeerrors.NewBranchNotFoundError(name)
	}
	node.Tip = tip
	node.ForkPoint = forkPoint
	node.Status = StatusClean
	return nil
}

// MarkPending flags name as waiting for a cascade
func (g *Graph) MarkPending(name string) error {
	node, ok := g.nodes[name]
	if !ok {
		return cascadeerrors.NewBranchNotFoundError(name)
	}
	node.Status = StatusPendingCascade
	return nil
}

// MarkConflicted flags name as the node a cascade halted on. Only one node may
// be conflicted at a time.
func (g *Graph) MarkConflicted(name string) error {
	node, ok := g.nodes[name]
	if !ok {
		return cascadeerrors.NewBranchNotFoundError(name)
	}
	if other, ok := g.Conflicted(); ok && other != name {
		return cascadeerrors.ErrConflictInProgress
	}
	node.Status = StatusConflicted
	return nil
}

// Conflicted returns the conflicted node, if any
func (g *Graph) Conflicted() (string, bool) {
	for name, node := range g.nodes {
		if node.Status == StatusConflicted {
			return name, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the graph
func (g *Graph) Clone() *Graph {
	c := New(g.isTrunk)
	for name, node := range g.nodes {
		n := copyNode(node)
		c.nodes[name] = &n
	}
	for parent, children := range g.childrenMap {
		c.childrenMap[parent] = append([]string(nil), children...)
	}
	return c
}

func (g *Graph) addChild(parent, child string) {
	children := append(g.childrenMap[parent], child)
	sort.Strings(children)
	g.childrenMap[parent] = children
}

func (g *Graph) removeChild(parent, child string) {
	children := g.childrenMap[parent]
	for i, c := range children {
		if c == child {
			children = append(children[:i:i], children[i+1:]...)
			break
		}
	}
	if len(children) == 0 {
		delete(g.childrenMap, parent)
		return
	}
	g.childrenMap[parent] = children
}

func copyNode(n *Node) Node {
	c := *n
	if n.ReviewRequestID != nil {
		v := *n.ReviewRequestID
		c.ReviewRequestID = &v
	}
	return c
}
