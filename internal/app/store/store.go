/*
Package store persists chat messages and serves reverse-chronological pages of them.

Messages are append-only. The only mutable part of a stored message is its set of
readers, which only grows. Backends: an in-process slice (Memory), SQLite and
Postgres, plus decorators adding bounded retry and tracing.
*/
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// FileRoutePrefix is where offloaded attachments are downloaded from.
const FileRoutePrefix = "/api/files/"

var (
	// ErrNotFound is returned when a message id does not exist.
	ErrNotFound = errors.New("message not found")

	// ErrInvalidPage is returned for negative skip or limit values.
	ErrInvalidPage = errors.New("skip and limit must not be negative")

	// ErrInvalidMessage is returned when a message breaks the private/system invariants.
	ErrInvalidMessage = errors.New("invalid message")
)

// Message is a persisted chat message. File attachments are messages with IsFile set.
type Message struct {
	ID          int64     `json:"id"`
	SenderID    string    `json:"senderId"`
	Sender      string    `json:"sender"`
	Body        string    `json:"message"`
	IsFile      bool      `json:"isFile"`
	FileName    string    `json:"fileName,omitempty"`
	FileData    string    `json:"fileData,omitempty"`
	FileKey     string    `json:"-"`
	MimeType    string    `json:"mimeType,omitempty"`
	FileSize    int64     `json:"fileSize,omitempty"`
	IsPrivate   bool      `json:"isPrivate"`
	RecipientID string    `json:"recipientId,omitempty"`
	System      bool      `json:"system"`
	ReadBy      []string  `json:"readBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// VisibleTo reports whether viewerID may see m. Public messages are visible to
// everyone; private ones only to their sender and recipient.
func (m Message) VisibleTo(viewerID string) bool {
	if !m.IsPrivate {
		return true
	}
	return viewerID != "" && (m.SenderID == viewerID || m.RecipientID == viewerID)
}

// Participants returns the session ids a receipt for m is addressed to.
func (m Message) Participants() []string {
	if m.System || m.SenderID == "" {
		return nil
	}
	if m.IsPrivate {
		return []string{m.SenderID, m.RecipientID}
	}
	return []string{m.SenderID}
}

// HasReader reports whether readerID is already in m.ReadBy.
func (m Message) HasReader(readerID string) bool {
	for _, id := range m.ReadBy {
		if id == readerID {
			return true
		}
	}
	return false
}

// ForWire returns the client-facing form: offloaded attachments point at the
// download route and ReadBy is never null.
func (m Message) ForWire() Message {
	if m.FileKey != "" {
		m.FileData = FileRoutePrefix + strconv.FormatInt(m.ID, 10)
	}
	if m.ReadBy == nil {
		m.ReadBy = []string{}
	} else {
		m.ReadBy = append([]string(nil), m.ReadBy...)
	}
	return m
}

// Validate checks the structural invariants every backend enforces on append.
func Validate(m Message) error {
	if m.IsPrivate != (m.RecipientID != "") {
		return fmt.Errorf("%w: recipient must be set exactly for private messages", ErrInvalidMessage)
	}
	if m.System && m.IsPrivate {
		return fmt.Errorf("%w: system messages cannot be private", ErrInvalidMessage)
	}
	if !m.System && m.SenderID == "" {
		return fmt.Errorf("%w: sender is required", ErrInvalidMessage)
	}
	return nil
}

// PageQuery selects a page counted backward from the newest message visible to ViewerID.
type PageQuery struct {
	Skip     int
	Limit    int
	ViewerID string
}

// Validate rejects negative offsets.
func (q PageQuery) Validate() error {
	if q.Skip < 0 || q.Limit < 0 {
		return ErrInvalidPage
	}
	return nil
}

// Store is implemented by every message backend.
type Store interface {
	// Append assigns ID and CreatedAt and persists m atomically.
	Append(ctx context.Context, m Message) (Message, error)

	// Page returns up to q.Limit messages, oldest-first, after skipping the q.Skip
	// most recent visible messages. A skip beyond the end yields an empty page.
	Page(ctx context.Context, q PageQuery) ([]Message, error)

	// Get loads one message with its readers.
	Get(ctx context.Context, id int64) (Message, error)

	// MarkRead adds readerID to the message's readers. changed is false when the
	// reader was already present or is the sender.
	MarkRead(ctx context.Context, id int64, readerID string) (m Message, changed bool, err error)

	Close() error
}

// TransientError marks a backend failure that may succeed when retried.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient store error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or anything it wraps) is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
