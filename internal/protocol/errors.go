package protocol

// ErrorKind enumerates the client-visible protocol error taxonomy. These are
// the only errors ever written back to a socket; every other failure is
// logged and swallowed server-side.
type ErrorKind string

const (
	AlreadyAuthenticated ErrorKind = "already_authenticated"
	NotAuthenticated     ErrorKind = "not_authenticated"
	InvalidCommand       ErrorKind = "invalid_command"
	BadState             ErrorKind = "bad_state"
	NotFound             ErrorKind = "not_found"
	BadInput             ErrorKind = "bad_input"
	InternalError        ErrorKind = "internal_error"
)

// ProtocolError is a client-visible error: a kind plus a human-readable
// message. It satisfies the error interface so it can travel through normal
// Go error-returning code until the session handler turns it into an Error
// message.
type ProtocolError struct {
	Kind    ErrorKind
	Message string
}

func (e *ProtocolError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// NewProtocolError builds a ProtocolError of the given kind.
func NewProtocolError(kind ErrorKind, message string) *ProtocolError {
	return &ProtocolError{Kind: kind, Message: message}
}
