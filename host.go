package sqliteworker

// PinToken is returned by Host.Pin and handed back to Host.Unpin. Its
// concrete shape is entirely up to the Host implementation; the core never
// inspects it.
type PinToken any

// Host is the contract the embedding event-loop runtime must satisfy. It
// is deliberately the only point of contact between this package and
// whatever runs the host's application logic; see hostloop for a concrete
// implementation backed by a real event loop.
type Host interface {
	// Post schedules fn to run on the loop goroutine. It must be safe to
	// call from any goroutine, including the worker goroutine and
	// Host.Spawn's own background goroutine, and it must coalesce: if
	// Post is called more than once before the loop has drained its
	// queue, the loop must still run every posted fn exactly once, but a
	// burst of Posts is allowed to wake the loop only once. Post itself
	// never runs fn synchronously.
	Post(fn func()) error

	// Spawn runs work on a goroutine drawn from the host's general
	// background pool, then schedules done to run on the loop goroutine
	// once work returns. It exists only for Open, which needs
	// background execution before any Database (and so any worker
	// goroutine) exists.
	Spawn(work func(), done func())

	// Pin marks v as ineligible for reclamation by the host runtime for
	// as long as the returned token is live, i.e. until the matching
	// Unpin call. Every pending callback is pinned for the full
	// duration of its async op.
	Pin(v any) PinToken

	// Unpin releases a token previously returned by Pin. It is called
	// exactly once per Pin, on every completion path including failure.
	Unpin(tok PinToken)
}
