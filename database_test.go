package sqliteworker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-sqliteworker/sqliteworker/internal/engine"
)

// fakeHost is a minimal Host that actually dispatches Post through a
// background goroutine, so tests exercise the same happens-before edge a
// real event loop provides without needing one running.
type fakeHost struct {
	postCh chan func()
}

func newFakeHost() *fakeHost {
	h := &fakeHost{postCh: make(chan func(), 64)}
	go func() {
		for fn := range h.postCh {
			fn()
		}
	}()
	return h
}

func (h *fakeHost) Post(fn func()) error {
	h.postCh <- fn
	return nil
}

func (h *fakeHost) Spawn(work func(), done func()) {
	go func() {
		work()
		h.postCh <- done
	}()
}

func (h *fakeHost) Pin(v any) PinToken { return v }
func (h *fakeHost) Unpin(PinToken)     {}

// fakeConn and fakeStmt back the worker protocol's tests without touching
// a real database file.
type fakeConn struct {
	mu          sync.Mutex
	closed      bool
	closeErr    error
	prepareErr  error
	lastInsert  int64
	interrupted bool
}

func (c *fakeConn) Prepare(sql string) (engine.Stmt, error) {
	if c.prepareErr != nil {
		return nil, c.prepareErr
	}
	return &fakeStmt{sqlText: sql}, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *fakeConn) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interrupted = true
}

func (c *fakeConn) LastInsertRowID() int64 { return c.lastInsert }

func (c *fakeConn) Status(op engine.StatusOp, reset bool) (int64, int64, error) {
	return 1, 2, nil
}

type fakeStmt struct {
	sqlText   string
	rows      []fakeRow
	idx       int
	stepErr   error
	finalized bool
	binds     map[int]any
}

type fakeRow []any

func (s *fakeStmt) Step() (bool, error) {
	if s.stepErr != nil {
		return false, s.stepErr
	}
	if s.idx >= len(s.rows) {
		return false, nil
	}
	s.idx++
	return true, nil
}

func (s *fakeStmt) Reset() error {
	s.idx = 0
	return nil
}

func (s *fakeStmt) ClearBindings() error {
	s.binds = nil
	return nil
}

func (s *fakeStmt) Finalize() error {
	s.finalized = true
	return nil
}

func (s *fakeStmt) SQL() string { return s.sqlText }

func (s *fakeStmt) bind(i int, v any) {
	if s.binds == nil {
		s.binds = make(map[int]any)
	}
	s.binds[i] = v
}

func (s *fakeStmt) BindNull(i int)             { s.bind(i, nil) }
func (s *fakeStmt) BindInt64(i int, v int64)   { s.bind(i, v) }
func (s *fakeStmt) BindFloat(i int, v float64) { s.bind(i, v) }
func (s *fakeStmt) BindText(i int, v string)   { s.bind(i, v) }
func (s *fakeStmt) BindBlob(i int, v []byte)   { s.bind(i, v) }

func (s *fakeStmt) ColumnCount() int {
	if len(s.rows) == 0 {
		return 0
	}
	return len(s.rows[0])
}

func (s *fakeStmt) ColumnName(i int) string { return "col" }

func (s *fakeStmt) ColumnType(i int) engine.ColumnType {
	switch s.rows[s.idx-1][i].(type) {
	case nil:
		return engine.ColumnNull
	case int64:
		return engine.ColumnInteger
	case float64:
		return engine.ColumnFloat
	case string:
		return engine.ColumnText
	case []byte:
		return engine.ColumnBlob
	default:
		return engine.ColumnNull
	}
}

func (s *fakeStmt) ColumnInt64(i int) int64   { return s.rows[s.idx-1][i].(int64) }
func (s *fakeStmt) ColumnFloat(i int) float64 { return s.rows[s.idx-1][i].(float64) }
func (s *fakeStmt) ColumnText(i int) string   { return s.rows[s.idx-1][i].(string) }
func (s *fakeStmt) ColumnBlob(i int) []byte   { return s.rows[s.idx-1][i].([]byte) }

func withFakeEngine(t *testing.T, conn *fakeConn, openErr error) {
	t.Helper()
	prev := openEngine
	openEngine = func(filename string, flags OpenFlags) (engine.Conn, error) {
		if openErr != nil {
			return nil, openErr
		}
		return conn, nil
	}
	t.Cleanup(func() { openEngine = prev })
}

func openFakeDatabase(t *testing.T, conn *fakeConn) *Database {
	t.Helper()
	withFakeEngine(t, conn, nil)
	host := newFakeHost()

	ch := make(chan *Database, 1)
	Open(host, "ignored", OpenReadWrite, func(d *Database, err *Error) {
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		ch <- d
	})
	select {
	case d := <-ch:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("open never completed")
		return nil
	}
}

func TestOpenSuccessRegistersHandle(t *testing.T) {
	conn := &fakeConn{}
	d := openFakeDatabase(t, conn)

	if _, ok := Databases.Get(d.Handle()); !ok {
		t.Fatal("database not registered in Databases")
	}
}

func TestOpenFailureNeverRegisters(t *testing.T) {
	withFakeEngine(t, nil, errors.New("no such file"))
	host := newFakeHost()

	ch := make(chan *Error, 1)
	Open(host, "missing.db", OpenReadOnly, func(d *Database, err *Error) {
		if d != nil {
			t.Fatal("expected nil database on open failure")
		}
		ch <- err
	})
	select {
	case err := <-ch:
		if err == nil {
			t.Fatal("expected non-nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("open callback never ran")
	}
}

func TestSubmitRejectsWhileBusy(t *testing.T) {
	conn := &fakeConn{}
	d := openFakeDatabase(t, conn)

	block := make(chan struct{})

	err1 := d.submit(false, func(d *Database) {
		<-block
		d.lastRC = nil
	}, func(d *Database) {})
	if err1 != nil {
		t.Fatalf("first submit: %v", err1)
	}

	err2 := d.submit(false, func(d *Database) {}, func(d *Database) {})
	if err2 == nil || err2.Code != EBUSY {
		t.Fatalf("expected EBUSY, got %v", err2)
	}
	close(block)
}

func TestCloseFinalizesStatementsAndRemovesHandle(t *testing.T) {
	conn := &fakeConn{}
	d := openFakeDatabase(t, conn)

	stCh := make(chan *Statement, 1)
	if err := d.Prepare("select 1", func(st *Statement, err *Error) {
		if err != nil {
			t.Fatalf("prepare: %v", err)
		}
		stCh <- st
	}); err != nil {
		t.Fatalf("prepare submit: %v", err)
	}
	st := <-stCh

	doneCh := make(chan *Error, 1)
	if err := d.Close(func(err *Error) { doneCh <- err }); err != nil {
		t.Fatalf("close submit: %v", err)
	}
	if err := <-doneCh; err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, ok := Databases.Get(d.Handle()); ok {
		t.Fatal("database handle still registered after close")
	}
	if _, ok := Statements.Get(st.Handle()); ok {
		t.Fatal("statement handle still registered after close")
	}
	if !st.stmt.(*fakeStmt).finalized {
		t.Fatal("statement not finalized on close")
	}
	if !conn.closed {
		t.Fatal("engine connection not closed")
	}
}

func TestPanicDuringWorkReportsEPANIC(t *testing.T) {
	conn := &fakeConn{}
	d := openFakeDatabase(t, conn)

	errCh := make(chan *Error, 1)
	err := d.submit(false,
		func(d *Database) { panic("boom") },
		func(d *Database) {
			if d.lastRC != nil {
				errCh <- d.lastRC.(*Error)
				return
			}
			errCh <- nil
		},
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := <-errCh
	if got == nil || got.Code != EPANIC {
		t.Fatalf("expected EPANIC, got %v", got)
	}

	// the worker goroutine must have survived the panic and stay usable.
	okCh := make(chan struct{}, 1)
	if err := d.submit(false, func(d *Database) { d.lastRC = nil }, func(d *Database) { okCh <- struct{}{} }); err != nil {
		t.Fatalf("submit after panic: %v", err)
	}
	select {
	case <-okCh:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive panic")
	}
}

func TestCloseFailureLeavesDatabaseUsable(t *testing.T) {
	conn := &fakeConn{closeErr: errors.New("disk full")}
	d := openFakeDatabase(t, conn)

	doneCh := make(chan *Error, 1)
	if err := d.Close(func(err *Error) { doneCh <- err }); err != nil {
		t.Fatalf("close submit: %v", err)
	}
	if err := <-doneCh; err == nil {
		t.Fatal("expected close failure")
	}
	if _, ok := Databases.Get(d.Handle()); !ok {
		t.Fatal("database should remain registered after a failed close")
	}
}
