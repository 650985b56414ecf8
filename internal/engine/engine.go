// Package engine is the thin synchronous wrapper over the embedded
// engine's C-style API: open, close, prepare, bind, step, reset, finalize,
// column accessors, interrupt, status. It is the one component the core's
// worker protocol calls straight through to without any asynchrony of its
// own — every method here blocks the calling goroutine exactly as the
// underlying sqlite3_* call would.
//
// Conn and Stmt are narrow interfaces rather than concrete types so the
// worker protocol's tests can run against a fake without a real database
// file. conn.go adapts crawshaw.io/sqlite to these interfaces.
package engine

// OpenFlags mirrors the engine's sqlite3_open_v2 flag bits the core needs;
// it is a distinct type from crawshaw.io/sqlite's so this package's public
// surface does not leak the underlying driver's types.
type OpenFlags int

const (
	OpenReadOnly OpenFlags = 1 << iota
	OpenReadWrite
	OpenCreate
	OpenURI
	OpenMemory
	OpenNoMutex
)

// ColumnType identifies the dynamic type SQLite assigned a result column
// for the current row, per sqlite3_column_type.
type ColumnType int

const (
	ColumnInteger ColumnType = iota + 1
	ColumnFloat
	ColumnText
	ColumnBlob
	ColumnNull
)

// Conn is one open engine connection, touched synchronously.
type Conn interface {
	Prepare(sql string) (Stmt, error)
	Close() error
	Interrupt()
	LastInsertRowID() int64
	Status(op StatusOp, reset bool) (current, highwater int64, err error)
}

// Stmt is one prepared statement, touched synchronously.
type Stmt interface {
	Step() (hasRow bool, err error)
	Reset() error
	ClearBindings() error
	Finalize() error
	SQL() string

	BindNull(param int)
	BindInt64(param int, v int64)
	BindFloat(param int, v float64)
	BindText(param int, v string)
	BindBlob(param int, v []byte)

	ColumnCount() int
	ColumnName(col int) string
	ColumnType(col int) ColumnType
	ColumnInt64(col int) int64
	ColumnFloat(col int) float64
	ColumnText(col int) string
	ColumnBlob(col int) []byte
}

// StatusOp identifies a sqlite3_status64/sqlite3_db_status counter.
type StatusOp int

const (
	StatusMemoryUsed StatusOp = iota
	StatusPageCacheUsed
	StatusPageCacheOverflow
)
