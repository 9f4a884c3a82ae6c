package model

import "testing"

func TestFilterVisible_PrunesOffscreen(t *testing.T) {
	screen := Rect{0, 0, 1080, 1920}
	root := Node{
		Text: "Root", Bounds: Rect{0, 0, 1080, 1920},
		Children: []Node{
			{Text: "Visible", Bounds: Rect{0, 0, 100, 100}},
			{Text: "Gone", Bounds: Rect{5000, 0, 5100, 100}},
		},
	}
	out := FilterVisible(&root, screen)
	if out == nil {
		t.Fatal("expected root to survive")
	}
	if len(out.Children) != 1 || out.Children[0].Text != "Visible" {
		t.Errorf("unexpected children: %+v", out.Children)
	}
	// Input untouched.
	if len(root.Children) != 2 {
		t.Error("input tree was mutated")
	}
}

func TestFilterVisible_KeepsAncestryOfVisibleDescendant(t *testing.T) {
	screen := Rect{0, 0, 1080, 1920}
	root := Node{
		Text: "Offscreen", Bounds: Rect{0, -400, 1080, -100},
		Children: []Node{{Text: "Child", Bounds: Rect{0, 10, 50, 50}}},
	}
	out := FilterVisible(&root, screen)
	if out == nil || len(out.Children) != 1 {
		t.Fatalf("expected offscreen parent kept for visible child, got %+v", out)
	}
}

func TestFilterVisible_AllOffscreen(t *testing.T) {
	screen := Rect{0, 0, 100, 100}
	root := Node{Text: "X", Bounds: Rect{200, 200, 300, 300}}
	if out := FilterVisible(&root, screen); out != nil {
		t.Errorf("expected nil, got %+v", out)
	}
}
