/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// Kind groups error codes into the categories clients act on.
type Kind string

const (
	// KindValidation covers malformed or rejected client input. No state was mutated.
	KindValidation Kind = "ValidationError"

	// KindRecipientNotFound means a private send targeted a session that is not online.
	KindRecipientNotFound Kind = "RecipientNotFound"

	// KindPayloadTooLarge means a file exceeded the transport ceiling and was not persisted.
	KindPayloadTooLarge Kind = "PayloadTooLarge"

	// KindTransientStore means persistence failed after bounded retries.
	KindTransientStore Kind = "TransientStoreError"

	KindRateLimited  Kind = "RateLimited"
	KindUnauthorized Kind = "Unauthorized"
	KindNotFound     Kind = "NotFound"
	KindInternal     Kind = "Internal"
)

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that an inbound frame or body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrUnsupportedEvent indicates that the client sent an event type the server does not know.
	ErrUnsupportedEvent = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrInvalidPagination indicates a negative or non-numeric skip/limit query value.
	ErrInvalidPagination = 1008
)

// 2xxx: Session and Content Business Logic Errors
const (
	// ErrUsernameRequired indicates that a join was attempted with an empty username.
	ErrUsernameRequired = 2001

	// ErrUsernameTooLong indicates that the requested username exceeds the length limit.
	ErrUsernameTooLong = 2002

	// ErrAlreadyJoined indicates a second join on a socket that already joined.
	ErrAlreadyJoined = 2003

	// ErrNotJoined indicates a chat action from a socket that has not joined yet.
	ErrNotJoined = 2004

	// ErrMessageContentEmpty indicates an empty message body.
	ErrMessageContentEmpty = 2201

	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2202

	// ErrRecipientNotFound indicates that the private recipient is not connected.
	ErrRecipientNotFound = 2301

	// ErrSelfRecipient indicates a private message addressed to the sender.
	ErrSelfRecipient = 2302

	// ErrMessageNotFound indicates that the referenced message does not exist or is not visible.
	ErrMessageNotFound = 2303

	// ErrFileSizeTooLarge indicates that an attachment exceeds the configured ceiling.
	ErrFileSizeTooLarge = 2401

	// ErrFileInvalid indicates a missing file name or undecodable file data.
	ErrFileInvalid = 2402
)

// 3xxx: Session and Security Errors
const (
	// ErrUnauthorized indicates a missing or invalid session token.
	ErrUnauthorized = 3001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreUnavailable indicates that the message store kept failing after retries.
	ErrStoreUnavailable = 5001

	// ErrFileStorageFailed indicates that an attachment could not be written to blob storage.
	ErrFileStorageFailed = 5002
)
