package sqliteworker

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/go-sqliteworker/sqliteworker/handle"
	"github.com/go-sqliteworker/sqliteworker/internal/engine"
	"github.com/go-sqliteworker/sqliteworker/internal/stmtlist"
)

// openEngine is overridden in tests so Open can run against a fake engine
// without touching a real database file.
var openEngine = engine.Open

// Databases is the handle registry every Database is registered into on a
// successful open and removed from on a successful close, so a host
// binding can hand out opaque integers instead of Go pointers.
var Databases = handle.New[*Database]()

// Statements mirrors Databases for prepared statements.
var Statements = handle.New[*Statement]()

// Database represents one open connection to the embedded engine, owned
// exclusively by this package until a successful close completes.
type Database struct {
	host Host
	log  zerolog.Logger

	conn engine.Conn

	mu   sync.Mutex
	cond *sync.Cond

	busy bool
	work *workFn

	pendingCallback func(*Database)
	pendingToken    PinToken

	lastRC error

	stmts stmtlist.List[*Statement]

	handle     handle.Handle
	workerDone chan struct{}
}

// Option configures a Database at open time.
type Option func(*Database)

// WithLogger attaches a structured logger for the worker's own lifecycle
// diagnostics (open, successful close, panic recovery, failed completion
// posts). The zero value
// is zerolog.Nop(), matching the pack's habit of injecting a logger
// instance rather than reaching for a process-global one.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Database) { d.log = log }
}

// OpenFlags mirrors engine.OpenFlags at the package boundary so callers
// never need to import the internal engine package directly.
type OpenFlags = engine.OpenFlags

const (
	OpenReadOnly  = engine.OpenReadOnly
	OpenReadWrite = engine.OpenReadWrite
	OpenCreate    = engine.OpenCreate
	OpenURI       = engine.OpenURI
	OpenMemory    = engine.OpenMemory
	OpenNoMutex   = engine.OpenNoMutex
)

// Open submits an asynchronous open. It does not use a per-database worker,
// because the Database does not exist yet; it runs on the host's generic
// background-work primitive instead, and only on success does it start the
// dedicated worker goroutine before delivering the handle.
func Open(host Host, filename string, flags OpenFlags, cb func(*Database, *Error), opts ...Option) {
	tok := host.Pin(cb)

	var conn engine.Conn
	var err error
	host.Spawn(
		func() {
			// runs off the loop goroutine; conn and err are read only by
			// the completion below, once this has returned.
			conn, err = openEngine(filename, flags)
		},
		func() {
			defer host.Unpin(tok)

			if err != nil {
				cb(nil, translateEngineErr("open", err))
				return
			}

			d := &Database{
				host:       host,
				conn:       conn,
				workerDone: make(chan struct{}),
			}
			for _, opt := range opts {
				opt(d)
			}
			d.cond = sync.NewCond(&d.mu)
			d.handle = Databases.Put(d)

			go d.workerLoop()

			d.log.Debug().Uint64("handle", uint64(d.handle)).Msg("database opened")
			cb(d, nil)
		},
	)
}

// workerLoop is the worker goroutine's entire life: a single loop that
// waits for work, runs it with the mutex released, clears the slot, and
// wakes the loop -- breaking only once a close both ran and returned nil.
func (d *Database) workerLoop() {
	defer close(d.workerDone)

	d.mu.Lock()
	for {
		work := d.work
		if work != nil {
			d.mu.Unlock()
			d.runWork(work)
			d.mu.Lock()
			wasClose := d.lastRC == nil && work.isCloseMarker
			d.work = nil
			if err := d.host.Post(d.deliverPending); err != nil {
				d.log.Error().Err(err).Msg("post completion to loop failed")
			}
			if wasClose {
				d.mu.Unlock()
				return
			}
			continue
		}
		d.cond.Wait()
	}
}

// workFn pairs the closure the worker runs with a marker distinguishing
// the close op, since only a successful close breaks the worker loop.
type workFn struct {
	run           func(*Database)
	isCloseMarker bool
}

func (d *Database) runWork(w *workFn) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Msg("worker recovered from panic")
			d.lastRC = newError("worker", EPANIC)
		}
	}()
	w.run(d)
}

// deliverPending runs on the loop goroutine: it reads back the saved
// callback, clears busy, and invokes the callback with whatever
// completion hook queued it.
func (d *Database) deliverPending() {
	d.mu.Lock()
	cb := d.pendingCallback
	tok := d.pendingToken
	d.pendingCallback = nil
	d.pendingToken = nil
	d.busy = false
	d.mu.Unlock()

	if cb != nil {
		cb(d)
	}
	if tok != nil {
		d.host.Unpin(tok)
	}
}

// submit implements the five-step submission protocol common to every
// async op: busy check, pin, set busy+work, signal. complete is stored and
// invoked by deliverPending once the worker has run run.
func (d *Database) submit(closeOp bool, run func(*Database), complete func(*Database)) *Error {
	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return newError("submit", EBUSY)
	}
	tok := d.host.Pin(complete)
	d.busy = true
	d.pendingCallback = complete
	d.pendingToken = tok
	d.work = &workFn{run: run, isCloseMarker: closeOp}
	d.mu.Unlock()
	d.cond.Signal()
	return nil
}

// Handle returns the opaque handle this Database was registered under.
func (d *Database) Handle() handle.Handle {
	return d.handle
}

// LastInsertRowID is synchronous; it requires busy == false.
func (d *Database) LastInsertRowID() (int64, *Error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return 0, newError("last_insert_rowid", EBUSY)
	}
	return d.conn.LastInsertRowID(), nil
}

// Interrupt requests that an in-progress step abort. It is the only
// operation safe to call while busy is true, because it is thread-safe at
// the engine level.
func (d *Database) Interrupt() {
	d.conn.Interrupt()
}

// Close drains and finalizes every statement in the list, then calls the
// engine's close. On success the completion joins the worker goroutine and
// delivers nil; on engine-close failure none of the teardown happens and
// the Database remains usable for a retry.
func (d *Database) Close(cb func(*Error)) *Error {
	return d.submit(true,
		func(d *Database) {
			d.stmts.Drain(func(st *Statement) {
				st.finalizeInternal()
			})
			if err := d.conn.Close(); err != nil {
				d.lastRC = translateEngineErr("close", err)
				return
			}
			d.lastRC = nil
		},
		func(d *Database) {
			if d.lastRC != nil {
				cb(d.lastRC.(*Error))
				return
			}
			<-d.workerDone
			Databases.Delete(d.handle)
			d.log.Debug().Uint64("handle", uint64(d.handle)).Msg("database closed")
			cb(nil)
		},
	)
}
