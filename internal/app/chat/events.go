/*
Package chat contains the realtime synchronization core: sessions, presence, typing state,
message routing and the hub that serializes every mutation of shared state.

This file defines the event contract exchanged with clients over the socket.
*/
package chat

import (
	"encoding/json"

	"chatsync/internal/app/store"
	"chatsync/internal/app/user"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
)

// EventType identifies the kind of frame exchanged over the socket.
type EventType string

// Client -> server events.
const (
	EventJoin           EventType = "join"
	EventMessage        EventType = "message"
	EventPrivateMessage EventType = "privateMessage"
	EventFile           EventType = "file"
	EventTyping         EventType = "typing"
	EventRead           EventType = "read"
	EventLeave          EventType = "leave"
)

// Server -> client events. EventMessage is shared by both directions.
const (
	EventJoined          EventType = "joined"
	EventPresenceChanged EventType = "presence-changed"
	EventTypingChanged   EventType = "typing-changed"
	EventReceipt         EventType = "receipt"
	EventTokenUpdate     EventType = "token-update"
	EventError           EventType = "error"
)

// Hub-internal commands that never appear on the wire.
const (
	eventConnect    EventType = "connect"
	eventDisconnect EventType = "disconnect"
)

// Frame is the envelope of every socket message.
type Frame struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outboundFrame struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// JoinPayload is sent by a client to enter the chat.
type JoinPayload struct {
	Username string `json:"username"`
}

// MessagePayload carries a public text message.
type MessagePayload struct {
	Body string `json:"body"`
}

// PrivateMessagePayload carries a text message for one recipient.
type PrivateMessagePayload struct {
	RecipientID string `json:"recipientId"`
	Body        string `json:"body"`
}

// FilePayload carries an attachment, public when RecipientID is empty.
// Data is a data URL or bare standard base64.
type FilePayload struct {
	RecipientID string `json:"recipientId,omitempty"`
	FileName    string `json:"fileName"`
	Data        string `json:"data"`
	MimeType    string `json:"mimeType,omitempty"`
}

// TypingPayload toggles the sender's typing flag, globally or towards RecipientID.
type TypingPayload struct {
	IsTyping    bool   `json:"isTyping"`
	RecipientID string `json:"recipientId,omitempty"`
}

// ReadPayload marks a message as read by the sender.
type ReadPayload struct {
	MessageID int64 `json:"messageId"`
}

// JoinedPayload is the joiner's view of the chat at join time.
type JoinedPayload struct {
	SelfID string      `json:"selfId"`
	Users  []user.User `json:"users"`
	Token  string      `json:"token"`
}

// PresencePayload lists online users in join order.
type PresencePayload struct {
	Users []user.User `json:"users"`
}

// TypingChangedPayload is the typing snapshot of one scope. RecipientID is the
// other member of the private pair, empty for the global scope.
type TypingChangedPayload struct {
	RecipientID string            `json:"recipientId,omitempty"`
	Users       map[string]string `json:"users"`
}

// ReceiptPayload reports who has read a message.
type ReceiptPayload struct {
	MessageID int64    `json:"messageId"`
	ReadBy    []string `json:"readBy"`
	ReadCount int      `json:"readCount"`
}

// TokenUpdatePayload carries a refreshed session token.
type TokenUpdatePayload struct {
	Token string `json:"token"`
}

// ErrorPayload reports a rejected event to the originating session.
type ErrorPayload struct {
	Kind   errs.Kind `json:"kind"`
	Code   int       `json:"code"`
	Detail string    `json:"detail"`
}

// Encode marshals an outbound frame.
func Encode(t EventType, payload any) ([]byte, error) {
	return json.Marshal(outboundFrame{Type: t, Payload: payload})
}

func encodeMessage(m store.Message) ([]byte, error) {
	return Encode(EventMessage, m.ForWire())
}

func encodeError(customErr *errs.CustomError) []byte {
	frame, err := Encode(EventError, ErrorPayload{
		Kind:   customErr.Kind,
		Code:   customErr.Code,
		Detail: customErr.Message,
	})
	if err != nil {
		logx.Error(err, "Failed to build error frame", "code", customErr.Code)
		return []byte(`{"type":"error","payload":{"kind":"` + string(errs.KindInternal) + `","code":0,"detail":""}}`)
	}
	return frame
}
