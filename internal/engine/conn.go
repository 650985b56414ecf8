package engine

import (
	"fmt"
	"sync"

	"crawshaw.io/sqlite"
)

// sqliteConn adapts *sqlite.Conn to Conn.
type sqliteConn struct {
	c *sqlite.Conn

	mu          sync.Mutex
	interruptCh chan struct{}
}

// Open opens filename with the given flags via crawshaw.io/sqlite. Unlike
// a database/sql driver, crawshaw.io/sqlite exposes prepare and step as
// direct synchronous calls on a single connection, which is what a worker
// goroutine driving one engine call at a time needs; wrapping a
// database/sql driver.Conn here would mean handing it a whole query instead
// of stepping a prepared statement call by call.
func Open(filename string, flags OpenFlags) (Conn, error) {
	c, err := sqlite.OpenConn(filename, toSqliteFlags(flags))
	if err != nil {
		return nil, wrapError(err)
	}
	ch := make(chan struct{})
	c.SetInterrupt(ch)
	return &sqliteConn{c: c, interruptCh: ch}, nil
}

// Error is the engine-origin half of the unified error space: a numeric
// result code plus whatever message the engine supplied, translated out of
// crawshaw.io/sqlite's own *sqlite.Error without leaking that type to
// callers of this package.
type Error struct {
	code    int
	message string
}

func (e *Error) Code() int     { return e.code }
func (e *Error) Error() string { return e.message }

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(sqlite.Error); ok {
		return &Error{code: int(se.Code), message: se.Error()}
	}
	if se, ok := err.(*sqlite.Error); ok {
		return &Error{code: int(se.Code), message: se.Error()}
	}
	return &Error{code: 0, message: err.Error()}
}

func toSqliteFlags(f OpenFlags) sqlite.OpenFlags {
	var out sqlite.OpenFlags
	if f&OpenReadOnly != 0 {
		out |= sqlite.OpenReadOnly
	}
	if f&OpenReadWrite != 0 {
		out |= sqlite.OpenReadWrite
	}
	if f&OpenCreate != 0 {
		out |= sqlite.OpenCreate
	}
	if f&OpenURI != 0 {
		out |= sqlite.OpenURI
	}
	if f&OpenMemory != 0 {
		out |= sqlite.OpenMemory
	}
	if f&OpenNoMutex != 0 {
		out |= sqlite.OpenNoMutex
	}
	// A worker goroutine drives exactly one Conn at a time; full mutex
	// isn't needed, but OpenNoMutex is opt-in (callers set it explicitly)
	// rather than forced here.
	return out
}

func (sc *sqliteConn) Prepare(sql string) (Stmt, error) {
	st, err := sc.c.Prepare(sql)
	if err != nil {
		return nil, wrapError(err)
	}
	return &sqliteStmt{st: st}, nil
}

func (sc *sqliteConn) Close() error {
	return wrapError(sc.c.Close())
}

// Interrupt aborts whatever is currently running on this connection by
// closing its installed interrupt channel, then immediately installs a
// fresh, open one so every subsequent Prepare/Step is unaffected. Without
// the re-arm, crawshaw.io/sqlite keeps returning SQLITE_INTERRUPT for the
// lifetime of the connection once its interrupt channel is closed once.
// Interrupt is safe to call concurrently with an in-flight step, per
// crawshaw.io/sqlite's own contract for SetInterrupt.
func (sc *sqliteConn) Interrupt() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	close(sc.interruptCh)
	sc.interruptCh = make(chan struct{})
	sc.c.SetInterrupt(sc.interruptCh)
}

func (sc *sqliteConn) LastInsertRowID() int64 {
	return sc.c.LastInsertRowID()
}

func (sc *sqliteConn) Status(op StatusOp, reset bool) (int64, int64, error) {
	cur, hwm, err := sc.c.Status(toSqliteStatusOp(op), reset)
	return int64(cur), int64(hwm), err
}

type sqliteStmt struct {
	st *sqlite.Stmt
}

func (ss *sqliteStmt) Step() (bool, error) {
	hasRow, err := ss.st.Step()
	return hasRow, wrapError(err)
}
func (ss *sqliteStmt) Reset() error         { return wrapError(ss.st.Reset()) }
func (ss *sqliteStmt) ClearBindings() error { return wrapError(ss.st.ClearBindings()) }
func (ss *sqliteStmt) Finalize() error      { return wrapError(ss.st.Finalize()) }
func (ss *sqliteStmt) SQL() string         { return ss.st.SQLString() }

func (ss *sqliteStmt) BindNull(param int)             { ss.st.BindNull(param) }
func (ss *sqliteStmt) BindInt64(param int, v int64)   { ss.st.BindInt64(param, v) }
func (ss *sqliteStmt) BindFloat(param int, v float64) { ss.st.BindFloat(param, v) }
func (ss *sqliteStmt) BindText(param int, v string)   { ss.st.BindText(param, v) }
func (ss *sqliteStmt) BindBlob(param int, v []byte)   { ss.st.BindBytes(param, v) }

func (ss *sqliteStmt) ColumnCount() int          { return ss.st.ColumnCount() }
func (ss *sqliteStmt) ColumnName(col int) string { return ss.st.ColumnName(col) }

func (ss *sqliteStmt) ColumnType(col int) ColumnType {
	switch ss.st.ColumnType(col) {
	case sqlite.SQLITE_INTEGER:
		return ColumnInteger
	case sqlite.SQLITE_FLOAT:
		return ColumnFloat
	case sqlite.SQLITE_TEXT:
		return ColumnText
	case sqlite.SQLITE_BLOB:
		return ColumnBlob
	default:
		return ColumnNull
	}
}

func (ss *sqliteStmt) ColumnInt64(col int) int64   { return ss.st.ColumnInt64(col) }
func (ss *sqliteStmt) ColumnFloat(col int) float64 { return ss.st.ColumnFloat(col) }
func (ss *sqliteStmt) ColumnText(col int) string   { return ss.st.ColumnText(col) }

func (ss *sqliteStmt) ColumnBlob(col int) []byte {
	n := ss.st.ColumnLen(col)
	if n == 0 {
		return []byte{}
	}
	buf := make([]byte, n)
	ss.st.ColumnBytes(col, buf)
	return buf
}

// toSqliteStatusOp maps the three process-global sqlite3_status() counters
// this package's StatusOp names (memory used, pagecache used, pagecache
// overflow) onto the closest distinct per-connection sqlite3_db_status
// counters crawshaw.io/sqlite exposes -- it wraps only the db-level API,
// not the global one, so these are connection-scoped approximations, not
// the literal global counters:
//   - StatusMemoryUsed   -> DBStatusCacheUsed: bytes used by this
//     connection's own pager cache, the dominant component of a single
//     connection's memory footprint.
//   - StatusPageCacheUsed -> DBStatusCacheUsedShared: pager cache bytes
//     shared with other connections, a distinct counter from the above.
//   - StatusPageCacheOverflow -> DBStatusCacheSpill: pages spilled from
//     the pager cache because they didn't fit, the closest available
//     counter to "overflow".
func toSqliteStatusOp(op StatusOp) sqlite.DBStatusOp {
	switch op {
	case StatusMemoryUsed:
		return sqlite.DBStatusCacheUsed
	case StatusPageCacheUsed:
		return sqlite.DBStatusCacheUsedShared
	case StatusPageCacheOverflow:
		return sqlite.DBStatusCacheSpill
	default:
		panic(fmt.Sprintf("engine: unknown status op %d", op))
	}
}
