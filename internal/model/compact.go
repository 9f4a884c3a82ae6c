package model

import (
	"fmt"
	"strings"
)

// MaxElements caps the number of elements one compaction emits. The output
// feeds a remote agent over a bandwidth-constrained channel; past the cap,
// remaining nodes are silently dropped.
const MaxElements = 100

// maxTextLen is the display-text length before ellipsizing.
const maxTextLen = 80

// minVisibleFraction is the screen-overlap fraction below which an element
// is dropped, unless one of its descendants survives the filter.
const minVisibleFraction = 0.01

// CompactElement is the bounded representation of one kept Node.
type CompactElement struct {
	Text       string `json:"text,omitempty"       yaml:"text,omitempty"`
	Bounds     [4]int `json:"bounds"               yaml:"bounds,flow"` // x, y, width, height
	ResourceID string `json:"resourceId,omitempty" yaml:"resourceId,omitempty"`
	Class      string `json:"class,omitempty"      yaml:"class,omitempty"`
	Flags      string `json:"flags,omitempty"      yaml:"flags,omitempty"`
}

// containerClasses are layout-only class names whose text carries no
// information for an agent.
var containerClasses = map[string]bool{
	"FrameLayout":  true,
	"View":         true,
	"LinearLayout": true,
	"ViewPager":    true,
	"RecyclerView": true,
	"ViewGroup":    true,
}

// punctuationOnly matches short separator strings like "-", "|", "==".
func punctuationOnly(s string) bool {
	if len(s) == 0 || len(s) > 2 {
		return false
	}
	for _, r := range s {
		switch r {
		case '|', '-', '_', '=', '~':
		default:
			return false
		}
	}
	return true
}

// meaningfulText reports whether text is worth keeping on its own: non-empty,
// not a bare container class name, and not a short punctuation separator.
func meaningfulText(text string) bool {
	if text == "" {
		return false
	}
	if containerClasses[text] {
		return false
	}
	return !punctuationOnly(text)
}

// keepNode reports whether a node carries enough information to emit.
// Skipped nodes do not prune their subtree; children are still visited.
func keepNode(n *Node) bool {
	if meaningfulText(n.Text) {
		return true
	}
	if n.Desc != "" || n.ResourceID != "" {
		return true
	}
	return n.Clickable || n.Focusable || n.Checkable || n.Editable
}

// visibleFraction returns intersectedArea / nodeArea against the screen.
// Degenerate zero-area bounds count as fully off-screen.
func visibleFraction(bounds, screen Rect) float64 {
	area := bounds.Area()
	if area == 0 {
		return 0
	}
	return float64(bounds.Intersect(screen).Area()) / float64(area)
}

// Compact flattens a raw tree into a bounded, document-ordered element list.
// Traversal is depth-first pre-order: parents appear before their children.
// When screen is non-nil, elements with less than 1% on-screen overlap are
// dropped unless a descendant survives, preserving the hierarchy context the
// serialized form needs. The input is never mutated and the result depends
// only on the input, so compacting twice yields identical output.
func Compact(root *Node, screen *Rect) []CompactElement {
	if root == nil {
		return nil
	}

	var emit func(n *Node) bool
	if screen == nil {
		emit = func(n *Node) bool { return keepNode(n) }
	} else {
		// With the visibility filter, whether a node is emitted depends on
		// its descendants, so decide the whole tree before walking it.
		emit = annotateVisibility(root, *screen)
	}

	out := make([]CompactElement, 0, 32)
	var walk func(n *Node)
	walk = func(n *Node) {
		if len(out) >= MaxElements {
			return
		}
		if emit(n) {
			out = append(out, compactOne(n))
		}
		for i := range n.Children {
			if len(out) >= MaxElements {
				return
			}
			walk(&n.Children[i])
		}
	}
	walk(root)
	return out
}

// annotateVisibility precomputes, for every node, whether it is emitted under
// the screen-visibility rule: kept by keepNode AND (≥1% visible OR some
// descendant is emitted). Returns a lookup over node pointers.
func annotateVisibility(root *Node, screen Rect) func(*Node) bool {
	emitted := make(map[*Node]bool)

	// subtree returns true if n or any descendant is emitted.
	var subtree func(n *Node) bool
	subtree = func(n *Node) bool {
		descendant := false
		for i := range n.Children {
			if subtree(&n.Children[i]) {
				descendant = true
			}
		}
		self := keepNode(n) &&
			(visibleFraction(n.Bounds, screen) >= minVisibleFraction || descendant)
		emitted[n] = self
		return self || descendant
	}
	subtree(root)

	return func(n *Node) bool { return emitted[n] }
}

// compactOne derives the bounded representation of a single node.
func compactOne(n *Node) CompactElement {
	text := n.Text
	if !meaningfulText(text) && n.Desc != "" {
		text = n.Desc
	}
	return CompactElement{
		Text:       Truncate(text, maxTextLen),
		Bounds:     [4]int{n.Bounds.Left, n.Bounds.Top, n.Bounds.Width(), n.Bounds.Height()},
		ResourceID: n.ResourceID,
		Class:      ShortClass(n.Class),
		Flags:      flagString(n),
	}
}

// flagString encodes the interaction flags as single-letter codes:
// c=clickable, l=longClickable, e=editable, f=focused, s=selected, k=checked.
func flagString(n *Node) string {
	var b strings.Builder
	if n.Clickable {
		b.WriteByte('c')
	}
	if n.LongClickable {
		b.WriteByte('l')
	}
	if n.Editable {
		b.WriteByte('e')
	}
	if n.Focused {
		b.WriteByte('f')
	}
	if n.Selected {
		b.WriteByte('s')
	}
	if n.Checked {
		b.WriteByte('k')
	}
	return b.String()
}

// ShortClass strips the package prefix from a fully qualified class name.
func ShortClass(class string) string {
	if i := strings.LastIndexByte(class, '.'); i >= 0 {
		return class[i+1:]
	}
	return class
}

// Truncate cuts s to limit runes and appends a single ellipsis character.
// The result is lossy on purpose: the consumer is a remote agent reading a
// bounded textual dump, not a renderer.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

// FormatElements renders a compacted list as one line per element, the
// textual form sent to agents that cannot inspect the live tree:
//
//	3. "Submit" Button (32,840,656,120) {c} id=com.app:id/submit
func FormatElements(elements []CompactElement) string {
	var b strings.Builder
	for i, el := range elements {
		fmt.Fprintf(&b, "%d.", i)
		if el.Text != "" {
			fmt.Fprintf(&b, " %q", el.Text)
		}
		if el.Class != "" {
			fmt.Fprintf(&b, " %s", el.Class)
		}
		fmt.Fprintf(&b, " (%d,%d,%d,%d)", el.Bounds[0], el.Bounds[1], el.Bounds[2], el.Bounds[3])
		if el.Flags != "" {
			fmt.Fprintf(&b, " {%s}", el.Flags)
		}
		if el.ResourceID != "" {
			fmt.Fprintf(&b, " id=%s", el.ResourceID)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
