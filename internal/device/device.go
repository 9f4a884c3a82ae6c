// Package device abstracts the UI-automation binding: snapshot the element
// tree, perform gestures, and read or write device state. The portal talks
// to one device through one Automation value; gesture and tree calls may
// block for tens to hundreds of milliseconds.
package device

import (
	"context"
	"time"

	"github.com/agentix/droidportal/internal/model"
)

// Point is a screen coordinate in device pixels.
type Point struct {
	X int
	Y int
}

// GlobalAction identifies a system-level navigation action.
type GlobalAction int

const (
	GlobalBack GlobalAction = iota + 1
	GlobalHome
	GlobalRecents
	GlobalNotifications
)

// PhoneState describes the foreground of the device at a point in time.
type PhoneState struct {
	Package       string `json:"package"`
	Activity      string `json:"activity,omitempty"`
	KeyboardShown bool   `json:"keyboardShown"`
}

// Automation is the device binding consumed by the command dispatcher.
//
// Implementations own a single gesture channel and a single tree source;
// callers serialize access (the dispatcher holds a mutex around every
// invocation). Returned trees are immutable after construction and may be
// shared freely.
type Automation interface {
	// SnapshotTree rebuilds and returns the current UI tree.
	SnapshotTree(ctx context.Context) (*model.Node, error)

	// ScreenBounds returns the display rectangle in device pixels.
	ScreenBounds(ctx context.Context) (model.Rect, error)

	// PerformGesture dispatches a stroke along path: one point is a tap
	// (or a hold, for long durations), two points a swipe.
	PerformGesture(ctx context.Context, path []Point, duration time.Duration) error

	// PerformGlobalAction triggers a system navigation action.
	PerformGlobalAction(ctx context.Context, action GlobalAction) error

	// SetFocusedText commits text into the focused editable field.
	// When clear is true the existing content is replaced, otherwise
	// the text is appended.
	SetFocusedText(ctx context.Context, text string, clear bool) error

	// ClearFocusedText empties the focused editable field.
	ClearFocusedText(ctx context.Context) error

	// SendKey synthesizes a key event by Android key code.
	SendKey(ctx context.Context, keyCode int) error

	// LaunchApp starts an application, optionally at an explicit activity.
	LaunchApp(ctx context.Context, pkg, activity string) error

	// CaptureScreenshot captures the screen as PNG bytes. The underlying
	// capture may complete asynchronously; the call blocks until the
	// result or ctx expires.
	CaptureScreenshot(ctx context.Context, hideOverlay bool) ([]byte, error)

	// ListPackages enumerates installed package names.
	ListPackages(ctx context.Context) ([]string, error)

	// PhoneState reports the foreground package, activity, and keyboard
	// visibility.
	PhoneState(ctx context.Context) (PhoneState, error)
}
