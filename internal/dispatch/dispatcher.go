// Package dispatch routes canonical commands onto the device-automation
// binding. Every transport (HTTP, WebSocket, reverse connection, MCP) parses
// its wire format into an action name plus a parameter bag and hands it to
// one Dispatcher, so one logical action has exactly one implementation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/agentix/droidportal/internal/config"
	"github.com/agentix/droidportal/internal/device"
)

// Result is the outcome of a successfully dispatched action. Most actions
// produce JSON (Data); screenshot produces raw bytes (Binary + MIME), which
// transports must write without a JSON envelope.
type Result struct {
	Data   any
	Binary []byte
	MIME   string
}

// IsBinary reports whether the result carries raw bytes instead of JSON.
func (r Result) IsBinary() bool {
	return r.Binary != nil
}

// Handler executes one action. Handlers block their caller's goroutine;
// transports are expected to call Dispatch off any latency-sensitive loop.
type Handler func(ctx context.Context, p Params) (Result, error)

// Dispatcher maps normalized action names to handlers. The device binding
// exposes a single gesture channel and a single focused node, so every
// device invocation runs under one mutex; tree snapshots are immutable once
// built and returned outside the lock.
type Dispatcher struct {
	auto device.Automation
	cfg  *config.Store
	log  *slog.Logger

	// devMu serializes device-automation calls (single-writer resource).
	devMu sync.Mutex

	handlers map[string]Handler
}

// New constructs a dispatcher over the given device binding and config
// store. Dependencies are passed in explicitly; the dispatcher never
// reaches for ambient singletons.
func New(auto device.Automation, cfg *config.Store, log *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		auto:     auto,
		cfg:      cfg,
		log:      log,
		handlers: make(map[string]Handler),
	}
	d.registerActions()
	return d
}

// register binds a handler under one or more action names.
func (d *Dispatcher) register(h Handler, names ...string) {
	for _, name := range names {
		d.handlers[name] = h
	}
}

// Normalize strips a single transport prefix so that "tap", "action.tap",
// and "/action/tap" all resolve to the same handler.
func Normalize(action string) string {
	if s, ok := strings.CutPrefix(action, "/action/"); ok {
		return s
	}
	if s, ok := strings.CutPrefix(action, "action."); ok {
		return s
	}
	return strings.TrimPrefix(action, "/")
}

// Dispatch resolves the action name and runs its handler. All failures come
// back as a classified *Error; nothing panics across this boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, action string, p Params) (res Result, err error) {
	name := Normalize(action)
	h, ok := d.handlers[name]
	if !ok {
		return Result{}, unknownAction(name)
	}
	if p == nil {
		p = Params{}
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panic", "action", name, "panic", r)
			err = operationFailed(fmt.Errorf("internal error in %s", name))
		}
	}()

	d.log.Debug("dispatch", "action", name)
	res, err = h(ctx, p)
	if err != nil {
		d.log.Warn("action failed", "action", name, "error", err)
		var e *Error
		if !errors.As(err, &e) {
			err = operationFailed(err)
		}
		return Result{}, err
	}
	return res, nil
}

// Has reports whether the (normalized) action name is registered.
func (d *Dispatcher) Has(action string) bool {
	_, ok := d.handlers[Normalize(action)]
	return ok
}

// withDevice runs fn while holding the device mutex.
func (d *Dispatcher) withDevice(fn func() error) error {
	d.devMu.Lock()
	defer d.devMu.Unlock()
	return fn()
}
