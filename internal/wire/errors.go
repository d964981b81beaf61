package wire

import "fmt"

// Kind classifies client-side failures across both transports.
type Kind int

const (
	// KindInvalidEndpoint means a malformed server URL.
	KindInvalidEndpoint Kind = iota
	// KindTransportFailure means a network-level failure on either transport.
	KindTransportFailure
	// KindResponseFormat means a response was missing expected fields.
	KindResponseFormat
	// KindSession means no valid session, or validation/renewal failed.
	KindSession
	// KindChannel means a streaming-channel-specific failure.
	KindChannel
	// KindParse means a payload failed to deserialize.
	KindParse
	// KindRemote means the server reached us and refused the operation: an
	// application-level error body, as opposed to a network failure.
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindInvalidEndpoint:
		return "invalid endpoint"
	case KindTransportFailure:
		return "transport failure"
	case KindResponseFormat:
		return "response format error"
	case KindSession:
		return "session error"
	case KindChannel:
		return "channel error"
	case KindParse:
		return "parse error"
	case KindRemote:
		return "remote error"
	default:
		return "unknown error"
	}
}

// Error is the typed error surfaced by every public operation of the
// subsystem. Op names the operation that failed in "package: action" form.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Kind.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a typed Error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a typed Error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the Kind of err, or ok=false if err is not a wire Error.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if we, ok := err.(*Error); ok {
			return we.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return 0, false
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
