package model

// Rect is a screen rectangle in device pixels, as reported by the
// accessibility layer (left/top/right/bottom, not width/height).
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the rectangle width, never negative.
func (r Rect) Width() int {
	if r.Right < r.Left {
		return 0
	}
	return r.Right - r.Left
}

// Height returns the rectangle height, never negative.
func (r Rect) Height() int {
	if r.Bottom < r.Top {
		return 0
	}
	return r.Bottom - r.Top
}

// Area returns the rectangle area in square pixels.
func (r Rect) Area() int {
	return r.Width() * r.Height()
}

// CenterX returns the horizontal center of the rectangle.
func (r Rect) CenterX() int {
	return r.Left + r.Width()/2
}

// CenterY returns the vertical center of the rectangle.
func (r Rect) CenterY() int {
	return r.Top + r.Height()/2
}

// Intersect returns the overlapping region of two rectangles. A zero-area
// Rect is returned when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		Left:   max(r.Left, o.Left),
		Top:    max(r.Top, o.Top),
		Right:  min(r.Right, o.Right),
		Bottom: min(r.Bottom, o.Bottom),
	}
	if out.Right < out.Left || out.Bottom < out.Top {
		return Rect{}
	}
	return out
}

// Node is one UI element snapshot from the device accessibility tree.
// Trees are rebuilt on every query and never mutated after construction,
// so a Node is safe to share across goroutines once built.
type Node struct {
	Text          string `json:"text,omitempty"`
	Desc          string `json:"contentDescription,omitempty"`
	ResourceID    string `json:"resourceId,omitempty"`
	Class         string `json:"className,omitempty"`
	Bounds        Rect   `json:"bounds"`
	Clickable     bool   `json:"clickable,omitempty"`
	LongClickable bool   `json:"longClickable,omitempty"`
	Editable      bool   `json:"editable,omitempty"`
	Focused       bool   `json:"focused,omitempty"`
	Selected      bool   `json:"selected,omitempty"`
	Checked       bool   `json:"checked,omitempty"`
	Checkable     bool   `json:"checkable,omitempty"`
	Scrollable    bool   `json:"scrollable,omitempty"`
	Focusable     bool   `json:"focusable,omitempty"`
	Children      []Node `json:"children,omitempty"`
}

// Walk visits n and all descendants in pre-order, stopping early when fn
// returns false for a node (its subtree is still skipped, not the siblings).
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for i := range n.Children {
		n.Children[i].Walk(fn)
	}
}
