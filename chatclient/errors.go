package chatclient

import (
	"errors"
	"fmt"
)

// Error kinds reported by the server, plus the client-side ones.
const (
	KindValidation        = "ValidationError"
	KindRecipientNotFound = "RecipientNotFound"
	KindPayloadTooLarge   = "PayloadTooLarge"
	KindTransientStore    = "TransientStoreError"
	KindConnection        = "ConnectionError"
)

var (
	// ErrNotJoined is returned by send helpers before Connect succeeds.
	ErrNotJoined = errors.New("chatclient: not joined")

	// ErrAlreadyConnected is returned by Connect on a client that is not disconnected.
	ErrAlreadyConnected = errors.New("chatclient: already connected")
)

// Error is a structured failure from the server or a client-side check.
type Error struct {
	Kind    string
	Code    int
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Kind, e.Message, e.Wrapped)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s %d: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind string) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func connectionError(message string, err error) *Error {
	return &Error{Kind: KindConnection, Message: message, Wrapped: err}
}
