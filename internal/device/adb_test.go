package device

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/agentix/droidportal/internal/logging"
	"github.com/agentix/droidportal/internal/model"
)

const sampleDump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node text="" resource-id="" class="android.widget.FrameLayout" bounds="[0,0][1080,1920]" clickable="false" focusable="false">
    <node text="Settings" resource-id="com.android.settings:id/title" class="android.widget.TextView" bounds="[48,120][400,180]" clickable="false" focusable="false"/>
    <node text="" content-desc="Search" resource-id="com.android.settings:id/search" class="android.widget.ImageButton" bounds="[960,96][1056,192]" clickable="true" focusable="true"/>
    <node text="" resource-id="" class="android.widget.EditText" bounds="[48,240][1032,336]" clickable="true" focusable="true" focused="true"/>
  </node>
</hierarchy>`

func TestParseHierarchy(t *testing.T) {
	root, err := ParseHierarchy([]byte(sampleDump))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Class != "android.widget.FrameLayout" {
		t.Errorf("expected FrameLayout root, got %q", root.Class)
	}
	if len(root.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(root.Children))
	}
	title := root.Children[0]
	if title.Text != "Settings" || title.ResourceID != "com.android.settings:id/title" {
		t.Errorf("unexpected title node: %+v", title)
	}
	if title.Bounds != (model.Rect{Left: 48, Top: 120, Right: 400, Bottom: 180}) {
		t.Errorf("unexpected bounds: %+v", title.Bounds)
	}
	search := root.Children[1]
	if !search.Clickable || search.Desc != "Search" {
		t.Errorf("unexpected search node: %+v", search)
	}
	edit := root.Children[2]
	if !edit.Editable {
		t.Error("EditText should be marked editable")
	}
	if !edit.Focused {
		t.Error("focused attribute not parsed")
	}
}

func TestParseHierarchy_Malformed(t *testing.T) {
	if _, err := ParseHierarchy([]byte("<hierarchy><node")); err == nil {
		t.Error("expected error for truncated XML")
	}
	if _, err := ParseHierarchy([]byte("<hierarchy/>")); err == nil {
		t.Error("expected error for empty hierarchy")
	}
}

func TestParseBounds(t *testing.T) {
	tests := []struct {
		in   string
		want model.Rect
		ok   bool
	}{
		{"[0,0][1080,1920]", model.Rect{Left: 0, Top: 0, Right: 1080, Bottom: 1920}, true},
		{"[-10,-20][30,40]", model.Rect{Left: -10, Top: -20, Right: 30, Bottom: 40}, true},
		{"", model.Rect{}, false},
		{"[a,b][c,d]", model.Rect{}, false},
	}
	for _, tt := range tests {
		got, err := parseBounds(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("parseBounds(%q) error = %v, ok expected %v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("parseBounds(%q) = %+v, expected %+v", tt.in, got, tt.want)
		}
	}
}

func TestParsePackageList(t *testing.T) {
	out := "package:com.android.settings\npackage:com.example.app\n\njunk\n"
	pkgs := ParsePackageList(out)
	if len(pkgs) != 2 {
		t.Fatalf("expected 2 packages, got %v", pkgs)
	}
	if pkgs[0] != "com.android.settings" || pkgs[1] != "com.example.app" {
		t.Errorf("unexpected packages: %v", pkgs)
	}
}

func TestParsePhoneState(t *testing.T) {
	out := "  mResumedActivity: ActivityRecord{1234 u0 com.android.settings/.MainSettings t42}"
	state := ParsePhoneState(out)
	if state.Package != "com.android.settings" {
		t.Errorf("unexpected package: %q", state.Package)
	}
	if state.Activity != "com.android.settings.MainSettings" {
		t.Errorf("unexpected activity: %q", state.Activity)
	}
}

// fakeRunner records adb invocations for gesture-mapping tests.
type fakeRunner struct {
	calls [][]string
}

func (f *fakeRunner) run(_ context.Context, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	return nil, nil
}

func newTestADB(f *fakeRunner) *ADB {
	a := NewADB("", logging.Default())
	a.runner = f.run
	return a
}

func TestPerformGesture_Tap(t *testing.T) {
	f := &fakeRunner{}
	a := newTestADB(f)
	if err := a.PerformGesture(context.Background(), []Point{{X: 100, Y: 200}}, 50*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.calls) != 1 {
		t.Fatalf("expected 1 adb call, got %d", len(f.calls))
	}
	got := strings.Join(f.calls[0], " ")
	if got != "shell input tap 100 200" {
		t.Errorf("unexpected call: %q", got)
	}
}

func TestPerformGesture_LongPress(t *testing.T) {
	f := &fakeRunner{}
	a := newTestADB(f)
	if err := a.PerformGesture(context.Background(), []Point{{X: 10, Y: 20}}, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.Join(f.calls[0], " ")
	if got != "shell input swipe 10 20 10 20 1000" {
		t.Errorf("unexpected call: %q", got)
	}
}

func TestPerformGesture_Swipe(t *testing.T) {
	f := &fakeRunner{}
	a := newTestADB(f)
	path := []Point{{X: 0, Y: 500}, {X: 0, Y: 100}}
	if err := a.PerformGesture(context.Background(), path, 300*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.Join(f.calls[0], " ")
	if got != "shell input swipe 0 500 0 100 300" {
		t.Errorf("unexpected call: %q", got)
	}
}

func TestPerformGesture_EmptyPath(t *testing.T) {
	a := newTestADB(&fakeRunner{})
	if err := a.PerformGesture(context.Background(), nil, time.Second); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSetFocusedText_EscapesSpaces(t *testing.T) {
	f := &fakeRunner{}
	a := newTestADB(f)
	if err := a.SetFocusedText(context.Background(), "hello world", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.Join(f.calls[len(f.calls)-1], " ")
	if got != "shell input text hello%sworld" {
		t.Errorf("unexpected call: %q", got)
	}
}
