package device

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"

	"github.com/agentix/droidportal/internal/model"
)

// uiaNode mirrors one <node> element of a uiautomator dump.
type uiaNode struct {
	Text          string    `xml:"text,attr"`
	ContentDesc   string    `xml:"content-desc,attr"`
	ResourceID    string    `xml:"resource-id,attr"`
	Class         string    `xml:"class,attr"`
	Bounds        string    `xml:"bounds,attr"`
	Clickable     string    `xml:"clickable,attr"`
	LongClickable string    `xml:"long-clickable,attr"`
	Focused       string    `xml:"focused,attr"`
	Focusable     string    `xml:"focusable,attr"`
	Selected      string    `xml:"selected,attr"`
	Checked       string    `xml:"checked,attr"`
	Checkable     string    `xml:"checkable,attr"`
	Scrollable    string    `xml:"scrollable,attr"`
	Children      []uiaNode `xml:"node"`
}

// uiaHierarchy is the root element of a uiautomator dump.
type uiaHierarchy struct {
	XMLName xml.Name  `xml:"hierarchy"`
	Nodes   []uiaNode `xml:"node"`
}

var boundsRe = regexp.MustCompile(`^\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]$`)

// parseBounds parses the uiautomator "[l,t][r,b]" bounds attribute.
func parseBounds(s string) (model.Rect, error) {
	m := boundsRe.FindStringSubmatch(s)
	if m == nil {
		return model.Rect{}, fmt.Errorf("malformed bounds %q", s)
	}
	vals := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return model.Rect{}, fmt.Errorf("malformed bounds %q: %w", s, err)
		}
		vals[i] = v
	}
	return model.Rect{Left: vals[0], Top: vals[1], Right: vals[2], Bottom: vals[3]}, nil
}

// ParseHierarchy converts a uiautomator XML dump into a Node tree. Dumps with
// multiple top-level nodes (split windows, overlays) are wrapped in a
// synthetic root so callers always get a single tree.
func ParseHierarchy(data []byte) (*model.Node, error) {
	var h uiaHierarchy
	if err := xml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse hierarchy: %w", err)
	}
	if len(h.Nodes) == 0 {
		return nil, fmt.Errorf("empty hierarchy")
	}
	if len(h.Nodes) == 1 {
		n := convertNode(h.Nodes[0])
		return &n, nil
	}
	root := model.Node{Class: "hierarchy"}
	for _, c := range h.Nodes {
		root.Children = append(root.Children, convertNode(c))
	}
	return &root, nil
}

func convertNode(u uiaNode) model.Node {
	bounds, _ := parseBounds(u.Bounds)
	n := model.Node{
		Text:          u.Text,
		Desc:          u.ContentDesc,
		ResourceID:    u.ResourceID,
		Class:         u.Class,
		Bounds:        bounds,
		Clickable:     u.Clickable == "true",
		LongClickable: u.LongClickable == "true",
		Editable:      isEditableClass(u.Class),
		Focused:       u.Focused == "true",
		Focusable:     u.Focusable == "true",
		Selected:      u.Selected == "true",
		Checked:       u.Checked == "true",
		Checkable:     u.Checkable == "true",
		Scrollable:    u.Scrollable == "true",
	}
	for _, c := range u.Children {
		n.Children = append(n.Children, convertNode(c))
	}
	return n
}

// isEditableClass approximates the editable flag, which uiautomator dumps do
// not expose directly.
func isEditableClass(class string) bool {
	switch model.ShortClass(class) {
	case "EditText", "AutoCompleteTextView", "MultiAutoCompleteTextView", "SearchView":
		return true
	}
	return false
}
