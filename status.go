package sqliteworker

import "github.com/go-sqliteworker/sqliteworker/internal/engine"

// StatusOp identifies one of the engine's runtime counters, mirroring
// sqlite3_status64/sqlite3_db_status.
type StatusOp = engine.StatusOp

const (
	StatusMemoryUsed       = engine.StatusMemoryUsed
	StatusPageCacheUsed    = engine.StatusPageCacheUsed
	StatusPageCacheOverflow = engine.StatusPageCacheOverflow
)

// GetStatus is synchronous and requires the Database to be idle. It
// returns the [current, highwater] pair for op, optionally resetting the
// highwater mark.
func (d *Database) GetStatus(op StatusOp, reset bool) (current, highwater int64, err *Error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return 0, 0, newError("get_sqlite_status", EBUSY)
	}
	cur, hwm, e := d.conn.Status(op, reset)
	if e != nil {
		return 0, 0, translateEngineErr("get_sqlite_status", e)
	}
	return cur, hwm, nil
}
