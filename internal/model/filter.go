package model

// FilterVisible returns a copy of the tree pruned to nodes that are at least
// minVisibleFraction on screen, or that have a visible descendant (ancestry
// is preserved so the remaining tree still reads as a hierarchy). Returns
// nil when nothing in the tree is visible. The input is not mutated.
func FilterVisible(root *Node, screen Rect) *Node {
	if root == nil {
		return nil
	}
	out, ok := filterVisibleNode(root, screen)
	if !ok {
		return nil
	}
	return &out
}

func filterVisibleNode(n *Node, screen Rect) (Node, bool) {
	var children []Node
	for i := range n.Children {
		if c, ok := filterVisibleNode(&n.Children[i], screen); ok {
			children = append(children, c)
		}
	}
	if len(children) == 0 && visibleFraction(n.Bounds, screen) < minVisibleFraction {
		return Node{}, false
	}
	out := *n
	out.Children = children
	return out, true
}
