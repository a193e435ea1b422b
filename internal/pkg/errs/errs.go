/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and includes a business code, a client-facing kind, a user-friendly message, and an HTTP status
code for unified error reporting.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chatsync/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Kind is the taxonomy bucket reported to clients.
	Kind Kind

	// Message is the user-friendly error description.
	Message string

	// Status is the standard HTTP status code corresponding to this error.
	Status int
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("%s %d (HTTP %d): %s", e.Kind, e.Code, e.Status, e.Message)
}

// NewError constructs and returns a new *CustomError instance based on a predefined error code.
// The optional details parameter supplies printf-style arguments for the message template.
// If an unknown code is provided, it defaults to returning ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
	} else if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	}

	return &customErr
}

// As normalises err into a *CustomError. Errors that are not already a CustomError
// are reported as ErrUnknown.
func As(err error) *CustomError {
	if err == nil {
		return nil
	}

	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	return NewError(ErrUnknown, err)
}

// IsKind reports whether err is a CustomError of the given kind.
func IsKind(err error, kind Kind) bool {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Kind == kind
	}
	return false
}
