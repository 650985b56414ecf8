/*
Package sqliteworker implements a durable association between one open
SQLite connection and one dedicated worker goroutine, so a single-threaded
cooperative host (an event-loop-driven managed runtime) can use the engine
without ever blocking its loop goroutine.

The host supplies a [Host]: a way to post a callback onto its loop
goroutine (coalescing multiple posts while the loop is busy into a single
wake), a way to run work on a background goroutine for the one operation
that needs it ([Open]), and a way to pin/unpin a callback value against
reclamation while it is in flight. [github.com/go-sqliteworker/sqliteworker/hostloop]
wires this contract to a real event loop.

# Opening a database

	sqliteworker.Open(host, "app.db", sqliteworker.OpenReadWrite|sqliteworker.OpenCreate,
		func(db *sqliteworker.Database, err *sqliteworker.Error) {
			if err != nil {
				// handle err
			}
			// db is ready; every further op on db runs through the
			// same worker goroutine.
		})

# Submitting work

Every asynchronous operation (Prepare, Step, Close) follows the same
shape: it returns synchronously with either nil (accepted) or an
[*Error] tagged [EBUSY] if another op on the same Database is already in
flight (Prepare also rejects SQL text over 2^31-1 bytes with [TOOBIG]).
Exactly one callback fires per accepted submission, on the loop
goroutine, once the worker goroutine has run the engine call.

	db.Prepare("SELECT x, y FROM t WHERE id = ?", func(stmt *sqliteworker.Statement, err *sqliteworker.Error) {
		if err != nil {
			return
		}
		stmt.Bind(1, 42)
		stmt.Step(func(row sqliteworker.Row, hasRow bool, err *sqliteworker.Error) {
			// ...
		})
	})

# Errors

Every failure, whether returned synchronously or delivered to a callback,
is a single tagged [*Error]: a Who naming the operation, a Code drawn from
the unified error space (negative values are this package's own failure
classes -- [EBUSY], [EINVAL], [ENOMEM], [ECHARSET], [TOOBIG], [EPANIC] -- and
non-negative values are the engine's own result codes, passed through
unchanged), and an optional engine-supplied Message.

# Text

SQL text and text-typed column values cross the engine boundary through
[github.com/go-sqliteworker/sqliteworker/text], which encodes Go strings to
UTF-8 and decodes UTF-8 back, rejecting malformed sequences (including the
surrogate range) without ever returning a partial result.

# Non-goals

This package does not pool connections, coordinate multiple writers across
databases, parse or plan SQL, or migrate schemas. Concurrency between
different Databases is entirely the host's concern; each Database is an
island.
*/
package sqliteworker
