package dispatch

import (
	"context"

	"github.com/agentix/droidportal/internal/model"
	"github.com/agentix/droidportal/internal/version"
)

// snapshot grabs the tree (and screen bounds when filtering) under the
// device mutex. The returned tree is immutable and safe to process outside
// the lock.
func (d *Dispatcher) snapshot(ctx context.Context, filtered bool) (*model.Node, *model.Rect, error) {
	var root *model.Node
	var screen *model.Rect
	err := d.withDevice(func() error {
		var err error
		root, err = d.auto.SnapshotTree(ctx)
		if err != nil {
			return err
		}
		if filtered {
			bounds, err := d.auto.ScreenBounds(ctx)
			if err != nil {
				return err
			}
			screen = &bounds
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return root, screen, nil
}

// handleScreenDump returns the compacted on-screen tree in the bounded
// textual form agents consume.
func (d *Dispatcher) handleScreenDump(ctx context.Context, _ Params) (Result, error) {
	root, screen, err := d.snapshot(ctx, true)
	if err != nil {
		return Result{}, err
	}
	elements := model.Compact(root, screen)
	return Result{Data: map[string]any{
		"success":  true,
		"count":    len(elements),
		"elements": elements,
		"text":     model.FormatElements(elements),
	}}, nil
}

// handleTree returns the compacted element list. filter defaults to true
// (on-screen elements only); filter=false compacts the whole tree.
func (d *Dispatcher) handleTree(ctx context.Context, p Params) (Result, error) {
	filtered := p.Bool("filter", true)
	root, screen, err := d.snapshot(ctx, filtered)
	if err != nil {
		return Result{}, err
	}
	elements := model.Compact(root, screen)
	return Result{Data: map[string]any{
		"success":  true,
		"count":    len(elements),
		"elements": elements,
	}}, nil
}

// handleTreeFull returns the raw tree with every property. The visibility
// filter prunes off-screen branches unless filter=false.
func (d *Dispatcher) handleTreeFull(ctx context.Context, p Params) (Result, error) {
	filtered := p.Bool("filter", true)
	root, screen, err := d.snapshot(ctx, filtered)
	if err != nil {
		return Result{}, err
	}
	if screen != nil {
		root = model.FilterVisible(root, *screen)
	}
	return Result{Data: map[string]any{
		"success": true,
		"tree":    root,
	}}, nil
}

func (d *Dispatcher) handleState(ctx context.Context, p Params) (Result, error) {
	res, err := d.handleTree(ctx, p)
	if err != nil {
		return Result{}, err
	}
	state, err := d.phoneState(ctx)
	if err != nil {
		return Result{}, err
	}
	data := res.Data.(map[string]any)
	data["phoneState"] = state
	return Result{Data: data}, nil
}

func (d *Dispatcher) handleStateFull(ctx context.Context, p Params) (Result, error) {
	res, err := d.handleTreeFull(ctx, p)
	if err != nil {
		return Result{}, err
	}
	state, err := d.phoneState(ctx)
	if err != nil {
		return Result{}, err
	}
	data := res.Data.(map[string]any)
	data["phoneState"] = state
	return Result{Data: data}, nil
}

func (d *Dispatcher) phoneState(ctx context.Context) (any, error) {
	var state any
	err := d.withDevice(func() error {
		s, err := d.auto.PhoneState(ctx)
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	return state, err
}

func (d *Dispatcher) handlePhoneState(ctx context.Context, _ Params) (Result, error) {
	state, err := d.phoneState(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: map[string]any{"success": true, "phoneState": state}}, nil
}

func (d *Dispatcher) handlePackages(ctx context.Context, _ Params) (Result, error) {
	var pkgs []string
	err := d.withDevice(func() error {
		var err error
		pkgs, err = d.auto.ListPackages(ctx)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Data: map[string]any{"success": true, "packages": pkgs}}, nil
}

func (d *Dispatcher) handleVersion(_ context.Context, _ Params) (Result, error) {
	return Result{Data: map[string]any{
		"success": true,
		"version": version.Version,
		"commit":  version.Commit,
	}}, nil
}
