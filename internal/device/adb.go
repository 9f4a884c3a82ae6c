package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agentix/droidportal/internal/model"
)

const adbTimeout = 10 * time.Second

// tapDuration is the stroke length of a plain tap.
const tapDuration = 50 * time.Millisecond

// ADB drives a device through the adb command line: uiautomator dumps for
// the tree, `input` for gestures and keys, `am`/`pm`/`dumpsys` for app and
// state queries. It satisfies Automation for development and testing off
// the device itself.
type ADB struct {
	Serial string
	Log    *slog.Logger

	// runner is swapped in tests to avoid spawning adb.
	runner func(ctx context.Context, args ...string) ([]byte, error)
}

// NewADB creates an adb-backed automation for the given device serial
// (empty selects the default device).
func NewADB(serial string, log *slog.Logger) *ADB {
	a := &ADB{Serial: serial, Log: log}
	a.runner = a.exec
	return a
}

func (a *ADB) exec(ctx context.Context, args ...string) ([]byte, error) {
	full := make([]string, 0, len(args)+2)
	if a.Serial != "" {
		full = append(full, "-s", a.Serial)
	}
	full = append(full, args...)

	ctx, cancel := context.WithTimeout(ctx, adbTimeout)
	defer cancel()

	a.Log.Debug("exec adb", "args", strings.Join(full, " "))
	cmd := exec.CommandContext(ctx, "adb", full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("adb %s: timed out", args[0])
		}
		return nil, fmt.Errorf("adb %s: %v: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (a *ADB) shell(ctx context.Context, args ...string) ([]byte, error) {
	return a.runner(ctx, append([]string{"shell"}, args...)...)
}

// SnapshotTree dumps the accessibility hierarchy via uiautomator and parses
// it into an immutable Node tree.
func (a *ADB) SnapshotTree(ctx context.Context) (*model.Node, error) {
	out, err := a.runner(ctx, "exec-out", "uiautomator", "dump", "/dev/tty")
	if err != nil {
		return nil, err
	}
	// exec-out appends a status line after the XML document.
	if i := bytes.LastIndexByte(out, '>'); i >= 0 {
		out = out[:i+1]
	}
	return ParseHierarchy(out)
}

var sizeRe = regexp.MustCompile(`(\d+)x(\d+)`)

// ScreenBounds parses `wm size` into the display rectangle. Override size
// (set by `wm size WxH`) wins over the physical size when present.
func (a *ADB) ScreenBounds(ctx context.Context) (model.Rect, error) {
	out, err := a.shell(ctx, "wm", "size")
	if err != nil {
		return model.Rect{}, err
	}
	var rect model.Rect
	found := false
	for _, line := range strings.Split(string(out), "\n") {
		m := sizeRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		rect = model.Rect{Right: w, Bottom: h}
		found = true
		if strings.Contains(line, "Override") {
			break
		}
	}
	if !found {
		return model.Rect{}, fmt.Errorf("wm size: no resolution in %q", strings.TrimSpace(string(out)))
	}
	return rect, nil
}

// PerformGesture maps a stroke onto adb input: one point becomes a tap or a
// hold depending on duration, two points a swipe.
func (a *ADB) PerformGesture(ctx context.Context, path []Point, duration time.Duration) error {
	ms := strconv.Itoa(int(duration.Milliseconds()))
	switch len(path) {
	case 0:
		return fmt.Errorf("empty gesture path")
	case 1:
		p := path[0]
		if duration <= tapDuration*2 {
			_, err := a.shell(ctx, "input", "tap", strconv.Itoa(p.X), strconv.Itoa(p.Y))
			return err
		}
		// A hold is a zero-length swipe with the hold duration.
		_, err := a.shell(ctx, "input", "swipe",
			strconv.Itoa(p.X), strconv.Itoa(p.Y), strconv.Itoa(p.X), strconv.Itoa(p.Y), ms)
		return err
	case 2:
		_, err := a.shell(ctx, "input", "swipe",
			strconv.Itoa(path[0].X), strconv.Itoa(path[0].Y),
			strconv.Itoa(path[1].X), strconv.Itoa(path[1].Y), ms)
		return err
	default:
		return fmt.Errorf("gesture paths with %d points are not supported over adb", len(path))
	}
}

var globalKeycodes = map[GlobalAction]string{
	GlobalBack:          "KEYCODE_BACK",
	GlobalHome:          "KEYCODE_HOME",
	GlobalRecents:       "KEYCODE_APP_SWITCH",
	GlobalNotifications: "KEYCODE_NOTIFICATION",
}

func (a *ADB) PerformGlobalAction(ctx context.Context, action GlobalAction) error {
	code, ok := globalKeycodes[action]
	if !ok {
		return fmt.Errorf("unknown global action %d", int(action))
	}
	_, err := a.shell(ctx, "input", "keyevent", code)
	return err
}

func (a *ADB) SetFocusedText(ctx context.Context, text string, clear bool) error {
	if clear {
		if err := a.ClearFocusedText(ctx); err != nil {
			return err
		}
	}
	// `input text` treats space and shell metacharacters specially.
	escaped := strings.ReplaceAll(text, " ", "%s")
	_, err := a.shell(ctx, "input", "text", escaped)
	return err
}

// ClearFocusedText empties the focused field: jump to the end, then delete
// backwards. uiautomator has no select-all primitive, so this is bounded by
// a fixed number of deletes.
func (a *ADB) ClearFocusedText(ctx context.Context) error {
	if _, err := a.shell(ctx, "input", "keyevent", "KEYCODE_MOVE_END"); err != nil {
		return err
	}
	dels := make([]string, 0, 52)
	dels = append(dels, "input", "keyevent")
	for i := 0; i < 50; i++ {
		dels = append(dels, "KEYCODE_DEL")
	}
	_, err := a.shell(ctx, dels...)
	return err
}

func (a *ADB) SendKey(ctx context.Context, keyCode int) error {
	_, err := a.shell(ctx, "input", "keyevent", strconv.Itoa(keyCode))
	return err
}

func (a *ADB) LaunchApp(ctx context.Context, pkg, activity string) error {
	if activity != "" {
		if !strings.Contains(activity, "/") {
			activity = pkg + "/" + activity
		}
		_, err := a.shell(ctx, "am", "start", "-n", activity)
		return err
	}
	_, err := a.shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	return err
}

// CaptureScreenshot grabs the framebuffer as PNG. screencap completes
// internally via the display pipeline; from the caller's side this resolves
// exactly once, on data or error. hideOverlay has no effect over adb: the
// overlay renderer lives on the device and is out of this binding's reach.
func (a *ADB) CaptureScreenshot(ctx context.Context, hideOverlay bool) ([]byte, error) {
	out, err := a.runner(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("screencap returned no data")
	}
	return out, nil
}

func (a *ADB) ListPackages(ctx context.Context) ([]string, error) {
	out, err := a.shell(ctx, "pm", "list", "packages")
	if err != nil {
		return nil, err
	}
	return ParsePackageList(string(out)), nil
}

// ParsePackageList strips the "package:" prefix from pm output lines.
func ParsePackageList(out string) []string {
	var pkgs []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if p, ok := strings.CutPrefix(line, "package:"); ok && p != "" {
			pkgs = append(pkgs, p)
		}
	}
	return pkgs
}

var resumedRe = regexp.MustCompile(`mResumedActivity.*\s([\w.]+)/(\S+)`)

func (a *ADB) PhoneState(ctx context.Context) (PhoneState, error) {
	out, err := a.shell(ctx, "dumpsys", "activity", "activities")
	if err != nil {
		return PhoneState{}, err
	}
	state := ParsePhoneState(string(out))

	if imeOut, err := a.shell(ctx, "dumpsys", "input_method"); err == nil {
		state.KeyboardShown = strings.Contains(string(imeOut), "mInputShown=true")
	}
	return state, nil
}

// ParsePhoneState extracts the resumed activity from dumpsys output.
func ParsePhoneState(out string) PhoneState {
	m := resumedRe.FindStringSubmatch(out)
	if m == nil {
		return PhoneState{}
	}
	activity := strings.TrimRight(m[2], "}")
	if strings.HasPrefix(activity, ".") {
		activity = m[1] + activity
	}
	return PhoneState{Package: m[1], Activity: activity}
}
