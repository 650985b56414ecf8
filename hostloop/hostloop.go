// Package hostloop wires sqliteworker.Host to a real event loop, so an
// application can drive one or more Databases off a single goroutine
// without writing its own coalescing wakeup logic.
package hostloop

import (
	"context"

	"github.com/joeycumines/go-eventloop"

	"github.com/go-sqliteworker/sqliteworker"
)

// Loop adapts *eventloop.Loop to sqliteworker.Host. The zero value is not
// usable; construct one with New.
type Loop struct {
	loop *eventloop.Loop
}

// New creates the underlying event loop and wraps it. Call Run to start it
// and Shutdown to stop it.
func New() (*Loop, error) {
	l, err := eventloop.New()
	if err != nil {
		return nil, err
	}
	return &Loop{loop: l}, nil
}

// Run blocks until ctx is cancelled or Shutdown is called. Callers
// typically run it on its own goroutine: go l.Run(ctx).
func (l *Loop) Run(ctx context.Context) error {
	return l.loop.Run(ctx)
}

// Shutdown stops the loop, waiting for it to drain.
func (l *Loop) Shutdown(ctx context.Context) error {
	return l.loop.Shutdown(ctx)
}

// Post implements sqliteworker.Host by scheduling fn as a microtask. The
// loop's own ingress queue already coalesces a burst of schedules behind
// one wakeup, so Post needs no bookkeeping of its own.
func (l *Loop) Post(fn func()) error {
	return l.loop.ScheduleMicrotask(fn)
}

// Spawn runs work on a plain goroutine -- Open is the only caller, and it
// has no Database and so no worker goroutine yet -- then posts done back
// onto the loop once work returns.
func (l *Loop) Spawn(work func(), done func()) {
	go func() {
		work()
		_ = l.loop.ScheduleMicrotask(done)
	}()
}

// Pin and Unpin are identities here: a Go closure handed to Post or Spawn
// is already reachable from the goroutine that will run it, so nothing
// additional needs to be kept alive. A managed-runtime host embedding a
// garbage-collected scripting engine needs a real implementation instead;
// see the example in hostloop_goja_example_test.go.
func (l *Loop) Pin(v any) sqliteworker.PinToken { return v }

// Unpin is a no-op to match Pin.
func (l *Loop) Unpin(sqliteworker.PinToken) {}
