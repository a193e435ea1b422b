/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
socket error events, HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the kind, user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Kind: KindValidation, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Kind: KindValidation, Message: "Malformed event payload.", Status: http.StatusBadRequest},
	ErrUnsupportedEvent:  {Code: ErrUnsupportedEvent, Kind: KindValidation, Message: "Unsupported event type %q.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Kind: KindRateLimited, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrInvalidPagination: {Code: ErrInvalidPagination, Kind: KindValidation, Message: "skip and limit must be non-negative integers.", Status: http.StatusBadRequest},

	// 2xxx: Session and Content Business Logic Errors
	ErrUsernameRequired:      {Code: ErrUsernameRequired, Kind: KindValidation, Message: "Username is required.", Status: http.StatusBadRequest},
	ErrUsernameTooLong:       {Code: ErrUsernameTooLong, Kind: KindValidation, Message: "Username must be at most %d characters.", Status: http.StatusBadRequest},
	ErrAlreadyJoined:         {Code: ErrAlreadyJoined, Kind: KindValidation, Message: "This connection has already joined.", Status: http.StatusBadRequest},
	ErrNotJoined:             {Code: ErrNotJoined, Kind: KindValidation, Message: "Join the chat before sending events.", Status: http.StatusBadRequest},
	ErrMessageContentEmpty:   {Code: ErrMessageContentEmpty, Kind: KindValidation, Message: "Message is empty.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Kind: KindValidation, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrRecipientNotFound:     {Code: ErrRecipientNotFound, Kind: KindRecipientNotFound, Message: "Recipient is not online.", Status: http.StatusNotFound},
	ErrSelfRecipient:         {Code: ErrSelfRecipient, Kind: KindValidation, Message: "Cannot send a private message to yourself.", Status: http.StatusBadRequest},
	ErrMessageNotFound:       {Code: ErrMessageNotFound, Kind: KindValidation, Message: "Message not found.", Status: http.StatusNotFound},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Kind: KindPayloadTooLarge, Message: "File is too large (max %d bytes).", Status: http.StatusRequestEntityTooLarge},
	ErrFileInvalid:           {Code: ErrFileInvalid, Kind: KindValidation, Message: "Invalid file payload.", Status: http.StatusBadRequest},

	// 3xxx: Session and Security Errors
	ErrUnauthorized: {Code: ErrUnauthorized, Kind: KindUnauthorized, Message: "A valid session token is required.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Kind: KindInternal, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStoreUnavailable:  {Code: ErrStoreUnavailable, Kind: KindTransientStore, Message: "Message could not be saved. Please try again.", Status: http.StatusServiceUnavailable},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Kind: KindTransientStore, Message: "File upload failed. Please try again.", Status: http.StatusServiceUnavailable},
}
