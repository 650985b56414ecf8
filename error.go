package sqliteworker

import "fmt"

// Code is drawn from the unified error space: negative values are
// host-runtime failure classes (including the six named below), and
// non-negative values are the embedded engine's own result codes, passed
// through unchanged. The two ranges never collide, so a Code's sign alone
// tells the host which side produced it.
type Code int

// Host-runtime failure classes the core itself produces, synchronously or
// via a callback. These occupy the negative half of the unified space,
// leaving the engine's non-negative result codes untouched.
const (
	// EBUSY is returned synchronously whenever an operation is attempted
	// on a Database whose busy flag is set.
	EBUSY Code = -1 - iota
	// EINVAL is returned synchronously for a bind value whose Go type is
	// not one of: nil, any integer kind, any float kind, string, []byte.
	EINVAL
	// ENOMEM marks an allocation failure of any owned buffer.
	ENOMEM
	// ECHARSET marks malformed UTF-8 encountered on decode.
	ECHARSET
	// TOOBIG marks SQL text that encodes to more than 2^31-1 bytes.
	TOOBIG
	// EPANIC marks a panic recovered from an engine call on the worker
	// goroutine; the worker survives, the in-flight op fails.
	EPANIC
)

var hostCodeNames = map[Code]string{
	EBUSY:    "EBUSY",
	EINVAL:   "EINVAL",
	ENOMEM:   "ENOMEM",
	ECHARSET: "ECHARSET",
	TOOBIG:   "TOOBIG",
	EPANIC:   "EPANIC",
}

func (c Code) String() string {
	if name, ok := hostCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is the single tagged failure value the core ever returns or
// delivers to a callback: (who, code, message). Message is present only
// when the engine supplied one; it is empty for host-runtime errors.
type Error struct {
	// Who names the operation that failed: "open", "prepare", "step",
	// "bind_text", "thread_init", and so on.
	Who string
	// Code is the translated result, drawn from the unified space.
	Code Code
	// Message is the engine's own error text, when there is one.
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Who, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Who, e.Code)
}

// Is reports whether e carries the given Code, so callers can write
// errors.Is(err, sqliteworker.EBUSY) style checks against a *Error without
// reaching into its fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(codeError)
	if !ok {
		return false
	}
	return e.Code == t.code()
}

// codeError lets the bare Code constants (EBUSY, EINVAL, ...) be used
// directly as errors.Is targets against an *Error.
type codeError interface {
	code() Code
}

func (c Code) code() Code { return c }

func (c Code) Error() string { return c.String() }

// newError builds a host-runtime tagged failure with no engine message.
func newError(who string, code Code) *Error {
	return &Error{Who: who, Code: code}
}

// engineError builds a tagged failure from the embedded engine's own
// result code and message, for an operation named who.
func engineError(who string, code int, message string) *Error {
	return &Error{Who: who, Code: Code(code), Message: message}
}
