package sqliteworker

import (
	"math"

	"github.com/go-sqliteworker/sqliteworker/handle"
	"github.com/go-sqliteworker/sqliteworker/internal/engine"
	"github.com/go-sqliteworker/sqliteworker/internal/stmtlist"
	"github.com/go-sqliteworker/sqliteworker/text"
)

// maxSQLBytes is 2^31-1, the largest UTF-8 encoding of a SQL string this
// package will hand to the engine; anything larger fails synchronously
// with TOOBIG before any submission happens.
const maxSQLBytes = math.MaxInt32

// Statement represents one prepared statement, bound to the Database that
// prepared it. A Statement outlives no Database: closing a Database
// finalizes every Statement still in its list.
type Statement struct {
	db   *Database
	stmt engine.Stmt
	node *stmtlist.Node[*Statement]

	handle    handle.Handle
	finalized bool
}

// Prepare submits an asynchronous prepare. The loop goroutine encodes sql
// to UTF-8 and rejects SQL text longer than 2^31-1 bytes before ever
// touching the submission slot, so an oversized SQL string never reaches
// the worker at all.
func (d *Database) Prepare(sql string, cb func(*Statement, *Error)) *Error {
	encoded := text.EncodeString(sql)
	if len(encoded) > maxSQLBytes {
		return newError("prepare", TOOBIG)
	}

	var prepared engine.Stmt

	return d.submit(false,
		func(d *Database) {
			st, err := d.conn.Prepare(string(encoded))
			if err != nil {
				d.lastRC = translateEngineErr("prepare", err)
				return
			}
			prepared = st
			d.lastRC = nil
		},
		func(d *Database) {
			if d.lastRC != nil {
				cb(nil, d.lastRC.(*Error))
				return
			}
			s := &Statement{db: d, stmt: prepared}
			s.node = d.stmts.PushFront(s)
			s.handle = Statements.Put(s)
			cb(s, nil)
		},
	)
}

// translateEngineErr maps an error returned by the engine package into the
// tagged failure shape for operation who.
func translateEngineErr(who string, err error) *Error {
	if ee, ok := err.(interface {
		Code() int
		Error() string
	}); ok {
		return engineError(who, ee.Code(), ee.Error())
	}
	return newError(who, ENOMEM)
}

// Row is one result row from Step, built by decoding each column per its
// engine-reported type. A text column whose bytes fail the UTF-8 bridge's
// validation replaces the whole Row with a decode failure: a bad encoding
// in user data must not corrupt the rest of the row, it must be reported
// as the row's result.
type Row []any

// Step runs one iteration of the statement. The callback receives exactly
// one of: (nil row, false, nil) for "done", (row, true, nil) for a result
// row, or (nil, false, failure) for an engine error.
func (s *Statement) Step(cb func(row Row, hasRow bool, err *Error)) *Error {
	d := s.db
	var hasRow bool

	return d.submit(false,
		func(d *Database) {
			hr, err := s.stmt.Step()
			if err != nil {
				d.lastRC = translateEngineErr("step", err)
				return
			}
			hasRow = hr
			d.lastRC = nil
		},
		func(d *Database) {
			if d.lastRC != nil {
				cb(nil, false, d.lastRC.(*Error))
				return
			}
			if !hasRow {
				cb(nil, false, nil)
				return
			}
			row, decodeErr := decodeRow(s.stmt)
			if decodeErr != nil {
				cb(nil, false, decodeErr)
				return
			}
			cb(row, true, nil)
		},
	)
}

// decodeRow builds a Row from the current result row of stmt, decoding
// each column by its engine-reported dynamic type.
func decodeRow(stmt engine.Stmt) (Row, *Error) {
	n := stmt.ColumnCount()
	row := make(Row, n)
	for i := 0; i < n; i++ {
		switch stmt.ColumnType(i) {
		case engine.ColumnInteger:
			row[i] = stmt.ColumnInt64(i)
		case engine.ColumnFloat:
			row[i] = stmt.ColumnFloat(i)
		case engine.ColumnText:
			decoded, err := text.Decode([]byte(stmt.ColumnText(i)))
			if err != nil {
				return nil, newError("make_scheme_string", ECHARSET)
			}
			row[i] = decoded
		case engine.ColumnBlob:
			row[i] = append([]byte(nil), stmt.ColumnBlob(i)...)
		default:
			row[i] = nil
		}
	}
	return row, nil
}

// Bind dispatches on v's Go runtime shape: nil, any integer kind, any
// float kind, string, or []byte. Anything else is EINVAL. Bind is
// synchronous and requires the Database to be idle.
func (s *Statement) Bind(index int, v any) *Error {
	if err := s.requireIdle("bind"); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		s.stmt.BindNull(index)
	case int:
		s.stmt.BindInt64(index, int64(val))
	case int8:
		s.stmt.BindInt64(index, int64(val))
	case int16:
		s.stmt.BindInt64(index, int64(val))
	case int32:
		s.stmt.BindInt64(index, int64(val))
	case int64:
		s.stmt.BindInt64(index, val)
	case uint:
		s.stmt.BindInt64(index, int64(val))
	case uint8:
		s.stmt.BindInt64(index, int64(val))
	case uint16:
		s.stmt.BindInt64(index, int64(val))
	case uint32:
		s.stmt.BindInt64(index, int64(val))
	case uint64:
		s.stmt.BindInt64(index, int64(val))
	case float32:
		s.stmt.BindFloat(index, float64(val))
	case float64:
		s.stmt.BindFloat(index, val)
	case string:
		encoded := text.EncodeString(val)
		s.stmt.BindText(index, string(encoded))
	case []byte:
		s.stmt.BindBlob(index, val)
	default:
		return newError("bind", EINVAL)
	}
	return nil
}

// ClearBindings, Reset, Finalize, Columns, and SQL are all synchronous and
// require the owning Database to be idle.
func (s *Statement) ClearBindings() *Error {
	if err := s.requireIdle("clear_bindings"); err != nil {
		return err
	}
	if err := s.stmt.ClearBindings(); err != nil {
		return translateEngineErr("clear_bindings", err)
	}
	return nil
}

func (s *Statement) Reset() *Error {
	if err := s.requireIdle("reset"); err != nil {
		return err
	}
	if err := s.stmt.Reset(); err != nil {
		return translateEngineErr("reset", err)
	}
	return nil
}

// Finalize removes the statement from its Database's list and finalizes
// the engine handle. A finalize attempted while the Database is busy fails
// with EBUSY, even if a *different* statement on the same Database is the
// one stepping: the engine itself allows finalizing an idle statement
// concurrently with another one's step, but this package serializes every
// op through the one worker goroutine, so busy is busy for all of them.
func (s *Statement) Finalize() *Error {
	if err := s.requireIdle("finalize"); err != nil {
		return err
	}
	s.finalizeInternal()
	return nil
}

// finalizeInternal is called either from Finalize (loop goroutine, idle)
// or from Close's drain (worker goroutine, mid-close); it performs no
// busy check of its own, since both callers have already established it is
// safe.
func (s *Statement) finalizeInternal() {
	if s.finalized {
		return
	}
	s.finalized = true
	s.node.Remove()
	Statements.Delete(s.handle)
	_ = s.stmt.Finalize()
}

// Columns returns the result column names, each decoded via the text
// bridge like any other text value crossing the engine boundary.
func (s *Statement) Columns() ([]string, *Error) {
	if err := s.requireIdle("statement_columns"); err != nil {
		return nil, err
	}
	n := s.stmt.ColumnCount()
	cols := make([]string, n)
	for i := 0; i < n; i++ {
		decoded, derr := text.Decode([]byte(s.stmt.ColumnName(i)))
		if derr != nil {
			return nil, newError("statement_columns", ECHARSET)
		}
		cols[i] = decoded
	}
	return cols, nil
}

// SQL returns the statement's original text, decoded via the text bridge.
func (s *Statement) SQL() (string, *Error) {
	if err := s.requireIdle("statement_sql"); err != nil {
		return "", err
	}
	decoded, derr := text.Decode([]byte(s.stmt.SQL()))
	if derr != nil {
		return "", newError("statement_sql", ECHARSET)
	}
	return decoded, nil
}

// Handle returns the opaque handle this Statement was registered under.
func (s *Statement) Handle() handle.Handle {
	return s.handle
}

func (s *Statement) requireIdle(who string) *Error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.busy {
		return newError(who, EBUSY)
	}
	return nil
}
