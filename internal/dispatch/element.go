package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentix/droidportal/internal/device"
	"github.com/agentix/droidportal/internal/model"
)

// Locator is the attribute set used to resolve a node before delegating to
// the base gesture/text primitives. All supplied attributes must match;
// index disambiguates when several nodes match.
type Locator struct {
	Text       string
	Desc       string
	ResourceID string
	Class      string
	Index      int
}

func locatorFromParams(p Params) Locator {
	return Locator{
		Text:       p.String("text", ""),
		Desc:       p.String("contentDesc", ""),
		ResourceID: p.String("resourceId", ""),
		Class:      p.String("className", ""),
		Index:      p.Int("index", 0),
	}
}

func (l Locator) empty() bool {
	return l.Text == "" && l.Desc == "" && l.ResourceID == "" && l.Class == ""
}

func (l Locator) String() string {
	var parts []string
	if l.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", l.Text))
	}
	if l.Desc != "" {
		parts = append(parts, fmt.Sprintf("desc=%q", l.Desc))
	}
	if l.ResourceID != "" {
		parts = append(parts, fmt.Sprintf("resourceId=%q", l.ResourceID))
	}
	if l.Class != "" {
		parts = append(parts, fmt.Sprintf("class=%q", l.Class))
	}
	return strings.Join(parts, " ")
}

// matches reports whether a node satisfies every supplied attribute. Text
// and description match case-insensitive substrings; resource ID matches
// exactly (it is carried uncompacted for exact re-lookup); class matches
// either the short or the fully qualified name.
func (l Locator) matches(n *model.Node) bool {
	if l.Text != "" && !strings.Contains(strings.ToLower(n.Text), strings.ToLower(l.Text)) {
		return false
	}
	if l.Desc != "" && !strings.Contains(strings.ToLower(n.Desc), strings.ToLower(l.Desc)) {
		return false
	}
	if l.ResourceID != "" && n.ResourceID != l.ResourceID {
		return false
	}
	if l.Class != "" && n.Class != l.Class && model.ShortClass(n.Class) != l.Class {
		return false
	}
	return true
}

// FindNodes collects matching nodes in document order.
func FindNodes(root *model.Node, l Locator) []*model.Node {
	var out []*model.Node
	root.Walk(func(n *model.Node) bool {
		if l.matches(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// resolve snapshots the tree and picks the index-th matching node.
func (d *Dispatcher) resolve(ctx context.Context, l Locator) (*model.Node, error) {
	if l.empty() {
		return nil, missingParam("text, contentDesc, resourceId, or className")
	}
	root, _, err := d.snapshot(ctx, false)
	if err != nil {
		return nil, err
	}
	matches := FindNodes(root, l)
	if len(matches) == 0 {
		return nil, operationFailed(fmt.Errorf("no element matches %s", l))
	}
	if l.Index >= len(matches) {
		return nil, operationFailed(fmt.Errorf("index %d out of range: %d elements match %s",
			l.Index, len(matches), l))
	}
	return matches[l.Index], nil
}

func (d *Dispatcher) registerElementActions() {
	d.register(d.handleElementFind, "element.find")
	d.register(d.handleElementClick, "element.click")
	d.register(d.handleElementDoubleTap, "element.double_tap")
	d.register(d.handleElementLongPress, "element.long_press")
	d.register(d.handleElementSetText, "element.set_text")
	d.register(d.handleElementScroll, "element.scroll")
	d.register(d.handleElementDrag, "element.drag")
	d.register(d.handleElementToggle, "element.toggle_checkbox")
}

func (d *Dispatcher) handleElementFind(ctx context.Context, p Params) (Result, error) {
	l := locatorFromParams(p)
	if l.empty() {
		return Result{}, missingParam("text, contentDesc, resourceId, or className")
	}
	root, _, err := d.snapshot(ctx, false)
	if err != nil {
		return Result{}, err
	}
	var elements []model.CompactElement
	for _, n := range FindNodes(root, l) {
		els := model.Compact(n, nil)
		if len(els) > 0 {
			elements = append(elements, els[0])
		}
	}
	return Result{Data: map[string]any{
		"success":  true,
		"count":    len(elements),
		"elements": elements,
	}}, nil
}

// gestureAt dispatches a single-point gesture at the node's center.
func (d *Dispatcher) gestureAt(ctx context.Context, n *model.Node, duration time.Duration) error {
	point := []device.Point{{X: n.Bounds.CenterX(), Y: n.Bounds.CenterY()}}
	return d.withDevice(func() error {
		return d.auto.PerformGesture(ctx, point, duration)
	})
}

func (d *Dispatcher) handleElementClick(ctx context.Context, p Params) (Result, error) {
	n, err := d.resolve(ctx, locatorFromParams(p))
	if err != nil {
		return Result{}, err
	}
	if err := d.gestureAt(ctx, n, tapDuration); err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

func (d *Dispatcher) handleElementDoubleTap(ctx context.Context, p Params) (Result, error) {
	n, err := d.resolve(ctx, locatorFromParams(p))
	if err != nil {
		return Result{}, err
	}
	return d.handleDoubleTap(ctx, Params{
		"x": n.Bounds.CenterX(),
		"y": n.Bounds.CenterY(),
	})
}

func (d *Dispatcher) handleElementLongPress(ctx context.Context, p Params) (Result, error) {
	n, err := d.resolve(ctx, locatorFromParams(p))
	if err != nil {
		return Result{}, err
	}
	duration := time.Duration(p.Int("duration", longPressDefault)) * time.Millisecond
	if err := d.gestureAt(ctx, n, duration); err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

// handleElementSetText focuses the field with a tap, then commits the text.
func (d *Dispatcher) handleElementSetText(ctx context.Context, p Params) (Result, error) {
	text := p.String("text_value", p.String("value", ""))
	if text == "" {
		return Result{}, missingParam("value")
	}
	n, err := d.resolve(ctx, locatorFromParams(p))
	if err != nil {
		return Result{}, err
	}
	if err := d.gestureAt(ctx, n, tapDuration); err != nil {
		return Result{}, err
	}
	clear := p.Bool("clear", true)
	if err := d.withDevice(func() error {
		return d.auto.SetFocusedText(ctx, text, clear)
	}); err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

// handleElementScroll swipes within the element's bounds. The swipe runs
// against the scroll direction: scrolling down drags content upward.
func (d *Dispatcher) handleElementScroll(ctx context.Context, p Params) (Result, error) {
	n, err := d.resolve(ctx, locatorFromParams(p))
	if err != nil {
		return Result{}, err
	}
	direction := p.String("direction", "down")
	cx, cy := n.Bounds.CenterX(), n.Bounds.CenterY()
	dx, dy := n.Bounds.Width()/3, n.Bounds.Height()/3

	var from, to device.Point
	switch direction {
	case "down":
		from, to = device.Point{X: cx, Y: cy + dy}, device.Point{X: cx, Y: cy - dy}
	case "up":
		from, to = device.Point{X: cx, Y: cy - dy}, device.Point{X: cx, Y: cy + dy}
	case "left":
		from, to = device.Point{X: cx - dx, Y: cy}, device.Point{X: cx + dx, Y: cy}
	case "right":
		from, to = device.Point{X: cx + dx, Y: cy}, device.Point{X: cx - dx, Y: cy}
	default:
		return Result{}, malformedInput("unknown scroll direction %q", direction)
	}

	err = d.withDevice(func() error {
		return d.auto.PerformGesture(ctx, []device.Point{from, to}, swipeDefaultMs*time.Millisecond)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

func (d *Dispatcher) handleElementDrag(ctx context.Context, p Params) (Result, error) {
	n, err := d.resolve(ctx, locatorFromParams(p))
	if err != nil {
		return Result{}, err
	}
	path := []device.Point{
		{X: n.Bounds.CenterX(), Y: n.Bounds.CenterY()},
		{X: p.Int("endX", 0), Y: p.Int("endY", 0)},
	}
	duration := time.Duration(p.Int("duration", 500)) * time.Millisecond
	err = d.withDevice(func() error {
		return d.auto.PerformGesture(ctx, path, duration)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

// handleElementToggle taps a checkable element and reports the state it had
// before the tap, so the caller knows which way it flipped.
func (d *Dispatcher) handleElementToggle(ctx context.Context, p Params) (Result, error) {
	l := locatorFromParams(p)
	n, err := d.resolve(ctx, l)
	if err != nil {
		return Result{}, err
	}
	if !n.Checkable {
		return Result{}, operationFailed(fmt.Errorf("element %s is not checkable", l))
	}
	if err := d.gestureAt(ctx, n, tapDuration); err != nil {
		return Result{}, err
	}
	return Result{Data: map[string]any{
		"success":    true,
		"wasChecked": n.Checked,
	}}, nil
}
