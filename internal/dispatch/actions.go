package dispatch

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/agentix/droidportal/internal/config"
	"github.com/agentix/droidportal/internal/device"
	"github.com/agentix/droidportal/internal/imaging"
)

// Gesture timing. Values come from the calling convention the remote agents
// rely on: taps are short, double-tap gaps land two taps within ~150ms, and
// swipe durations are clamped to something a human could plausibly perform.
const (
	tapDuration       = 50 * time.Millisecond
	doubleTapGap      = 100 * time.Millisecond
	longPressDefault  = 1000
	swipeDefaultMs    = 300
	swipeMinMs        = 10
	swipeMaxMs        = 5000
)

// okResult is the JSON body of every side-effect action that succeeded.
func okResult() Result {
	return Result{Data: map[string]any{"success": true}}
}

func (d *Dispatcher) registerActions() {
	d.register(d.handleTap, "tap")
	d.register(d.handleDoubleTap, "double_tap")
	d.register(d.handleLongPress, "long_press")
	d.register(d.handleSwipe, "swipe")
	d.register(d.handleGlobal, "global")
	d.register(d.handleApp, "app", "launch_app")
	d.register(d.handleInput, "input", "text.input")
	d.register(d.handleClear, "clear", "input.clear")
	d.register(d.handleKey, "key", "key.send")
	d.register(d.handleOverlayOffset, "overlay_offset")
	d.register(d.handleSocketPort, "socket_port")
	d.register(d.handleScreenshot, "screenshot")

	d.register(d.handleScreenDump, "screen.dump")
	d.register(d.handleTree, "a11y_tree")
	d.register(d.handleTreeFull, "a11y_tree_full")
	d.register(d.handleState, "state")
	d.register(d.handleStateFull, "state_full")
	d.register(d.handlePhoneState, "phone_state")
	d.register(d.handlePackages, "packages", "packages.list")
	d.register(d.handleVersion, "version")
	d.register(d.handleWait, "wait")

	d.registerElementActions()
}

func (d *Dispatcher) handleTap(ctx context.Context, p Params) (Result, error) {
	x, y := p.Int("x", 0), p.Int("y", 0)
	err := d.withDevice(func() error {
		return d.auto.PerformGesture(ctx, []device.Point{{X: x, Y: y}}, tapDuration)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

// handleDoubleTap dispatches two discrete taps at the same point separated
// by a fixed gap. This is the canonical implementation; both taps register
// within ~150ms of each other.
func (d *Dispatcher) handleDoubleTap(ctx context.Context, p Params) (Result, error) {
	x, y := p.Int("x", 0), p.Int("y", 0)
	point := []device.Point{{X: x, Y: y}}
	err := d.withDevice(func() error {
		if err := d.auto.PerformGesture(ctx, point, tapDuration); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(doubleTapGap):
		}
		return d.auto.PerformGesture(ctx, point, tapDuration)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

func (d *Dispatcher) handleLongPress(ctx context.Context, p Params) (Result, error) {
	x, y := p.Int("x", 0), p.Int("y", 0)
	duration := time.Duration(p.Int("duration", longPressDefault)) * time.Millisecond
	err := d.withDevice(func() error {
		return d.auto.PerformGesture(ctx, []device.Point{{X: x, Y: y}}, duration)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

func (d *Dispatcher) handleSwipe(ctx context.Context, p Params) (Result, error) {
	ms := p.Int("duration", swipeDefaultMs)
	if ms < swipeMinMs {
		ms = swipeMinMs
	}
	if ms > swipeMaxMs {
		ms = swipeMaxMs
	}
	path := []device.Point{
		{X: p.Int("startX", 0), Y: p.Int("startY", 0)},
		{X: p.Int("endX", 0), Y: p.Int("endY", 0)},
	}
	err := d.withDevice(func() error {
		return d.auto.PerformGesture(ctx, path, time.Duration(ms)*time.Millisecond)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

func (d *Dispatcher) handleGlobal(ctx context.Context, p Params) (Result, error) {
	id := device.GlobalAction(p.Int("actionId", 0))
	err := d.withDevice(func() error {
		return d.auto.PerformGlobalAction(ctx, id)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

func (d *Dispatcher) handleApp(ctx context.Context, p Params) (Result, error) {
	pkg := p.String("package", "")
	if pkg == "" {
		return Result{}, missingParam("package")
	}
	activity := p.String("activity", "")
	err := d.withDevice(func() error {
		return d.auto.LaunchApp(ctx, pkg, activity)
	})
	if err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

func (d *Dispatcher) handleInput(ctx context.Context, p Params) (Result, error) {
	encoded := p.String("base64_text", p.String("base64Text", ""))
	if encoded == "" {
		return Result{}, missingParam("base64_text")
	}
	text, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Result{}, malformedInput("base64_text is not valid base64: %v", err)
	}
	clear := p.Bool("clear", true)
	if err := d.withDevice(func() error {
		return d.auto.SetFocusedText(ctx, string(text), clear)
	}); err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

func (d *Dispatcher) handleClear(ctx context.Context, _ Params) (Result, error) {
	if err := d.withDevice(func() error {
		return d.auto.ClearFocusedText(ctx)
	}); err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

func (d *Dispatcher) handleKey(ctx context.Context, p Params) (Result, error) {
	code := p.Int("key_code", p.Int("keyCode", 0))
	if err := d.withDevice(func() error {
		return d.auto.SendKey(ctx, code)
	}); err != nil {
		return Result{}, err
	}
	return okResult(), nil
}

func (d *Dispatcher) handleOverlayOffset(_ context.Context, p Params) (Result, error) {
	offset := p.Int("offset", 0)
	d.cfg.Update(func(cfg *config.File) { cfg.OverlayOffset = offset })
	return okResult(), nil
}

func (d *Dispatcher) handleSocketPort(_ context.Context, p Params) (Result, error) {
	port := p.Int("port", 0)
	if port <= 0 || port > 65535 {
		return Result{}, malformedInput("port %d out of range", port)
	}
	d.cfg.Update(func(cfg *config.File) { cfg.WSPort = port })
	return okResult(), nil
}

func (d *Dispatcher) handleScreenshot(ctx context.Context, p Params) (Result, error) {
	hideOverlay := p.Bool("hideOverlay", true)
	scale := p.Float("scale", 1.0)

	var data []byte
	err := d.withDevice(func() error {
		var err error
		data, err = d.auto.CaptureScreenshot(ctx, hideOverlay)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if scale > 0 && scale < 1.0 {
		scaled, err := imaging.ScalePNG(data, scale)
		if err != nil {
			return Result{}, operationFailed(fmt.Errorf("scale screenshot: %w", err))
		}
		data = scaled
	}
	return Result{Binary: data, MIME: "image/png"}, nil
}
