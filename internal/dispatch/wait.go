package dispatch

import (
	"context"
	"fmt"
	"time"
)

// handleWait polls the tree until a locator matches (or stops matching,
// with gone=true). Interval and maximum duration come from configuration
// but can be overridden per call; the poll also honors ctx cancellation,
// so a dropped transport connection stops the loop early.
func (d *Dispatcher) handleWait(ctx context.Context, p Params) (Result, error) {
	l := locatorFromParams(p)
	if l.empty() {
		return Result{}, missingParam("text, contentDesc, resourceId, or className")
	}
	gone := p.Bool("gone", false)

	cfg := d.cfg.Get()
	interval := cfg.WaitInterval
	if ms := p.Int("interval", 0); ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}
	maxWait := cfg.WaitMax
	if ms := p.Int("timeout", 0); ms > 0 {
		maxWait = time.Duration(ms) * time.Millisecond
	}

	deadline := time.Now().Add(maxWait)
	start := time.Now()
	for {
		root, _, err := d.snapshot(ctx, false)
		if err != nil {
			return Result{}, err
		}
		found := len(FindNodes(root, l)) > 0
		if found != gone {
			return Result{Data: map[string]any{
				"success": true,
				"elapsed": time.Since(start).String(),
			}}, nil
		}
		if time.Now().Add(interval).After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return Result{}, operationFailed(ctx.Err())
		case <-time.After(interval):
		}
	}

	want := "appear"
	if gone {
		want = "disappear"
	}
	return Result{}, &Error{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("element %s did not %s within %s", l, want, maxWait),
	}
}
