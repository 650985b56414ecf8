package hostloop_test

import (
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/go-sqliteworker/sqliteworker"
)

// gojaHost sketches the Pin/Unpin a managed-runtime host needs, as opposed
// to hostloop.Loop's identity pair. A goja.Runtime is single-threaded: a
// goja.Callable captured by a sqliteworker callback must stay reachable
// from the runtime's own goroutine until the completion fires, even if the
// script that created it drops its last reference in the meantime.
// Retaining the value in a registry keyed by a counter, rather than
// relying on whatever the runtime's own value lifetime would otherwise be,
// keeps it alive across that gap.
type gojaHost struct {
	rt *goja.Runtime

	mu      sync.Mutex
	pinned  map[uint64]goja.Callable
	nextTok uint64
}

func newGojaHost(rt *goja.Runtime) *gojaHost {
	return &gojaHost{rt: rt, pinned: make(map[uint64]goja.Callable)}
}

// pinCallback wraps a JS function value as a sqliteworker callback closure,
// pinning the goja.Callable until the returned token is passed to Unpin.
func (h *gojaHost) pinCallback(fn goja.Value) (func(args ...any), sqliteworker.PinToken) {
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return func(...any) {}, nil
	}

	tok := atomic.AddUint64(&h.nextTok, 1)
	h.mu.Lock()
	h.pinned[tok] = callable
	h.mu.Unlock()

	return func(args ...any) {
		vals := make([]goja.Value, len(args))
		for i, a := range args {
			vals[i] = h.rt.ToValue(a)
		}
		_, _ = callable(goja.Undefined(), vals...)
	}, tok
}

func (h *gojaHost) Unpin(tok sqliteworker.PinToken) {
	u, ok := tok.(uint64)
	if !ok {
		return
	}
	h.mu.Lock()
	delete(h.pinned, u)
	h.mu.Unlock()
}
