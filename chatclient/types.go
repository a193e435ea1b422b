package chatclient

import (
	"encoding/json"
	"time"
)

// Event types exchanged with the server.
const (
	TypeJoin           = "join"
	TypeMessage        = "message"
	TypePrivateMessage = "privateMessage"
	TypeFile           = "file"
	TypeTyping         = "typing"
	TypeRead           = "read"
	TypeLeave          = "leave"

	TypeJoined          = "joined"
	TypePresenceChanged = "presence-changed"
	TypeTypingChanged   = "typing-changed"
	TypeReceipt         = "receipt"
	TypeTokenUpdate     = "token-update"
	TypeError           = "error"
)

// User is an online participant.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Message is a chat, file or system message.
type Message struct {
	ID          int64     `json:"id"`
	SenderID    string    `json:"senderId"`
	Sender      string    `json:"sender"`
	Body        string    `json:"message"`
	IsFile      bool      `json:"isFile"`
	FileName    string    `json:"fileName,omitempty"`
	FileData    string    `json:"fileData,omitempty"`
	MimeType    string    `json:"mimeType,omitempty"`
	FileSize    int64     `json:"fileSize,omitempty"`
	IsPrivate   bool      `json:"isPrivate"`
	RecipientID string    `json:"recipientId,omitempty"`
	System      bool      `json:"system"`
	ReadBy      []string  `json:"readBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Joined is the server's answer to a join.
type Joined struct {
	SelfID string `json:"selfId"`
	Users  []User `json:"users"`
	Token  string `json:"token"`
}

// Typing is the typing snapshot of one scope. RecipientID is the other member
// of a private pair, empty for the global scope.
type Typing struct {
	RecipientID string            `json:"recipientId,omitempty"`
	Users       map[string]string `json:"users"`
}

// Receipt reports who has read a message.
type Receipt struct {
	MessageID int64    `json:"messageId"`
	ReadBy    []string `json:"readBy"`
	ReadCount int      `json:"readCount"`
}

// Event is one decoded server frame. Exactly the field matching Type is set.
type Event struct {
	Type string

	Joined  *Joined
	Users   []User
	Message *Message
	Typing  *Typing
	Receipt *Receipt
	Token   string
	Err     *Error
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Kind   string `json:"kind"`
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

// decodeEvent turns a frame into an Event. Unknown types decode with only Type set.
func decodeEvent(f frame) (Event, error) {
	e := Event{Type: f.Type}

	var err error
	switch f.Type {
	case TypeJoined:
		e.Joined = &Joined{}
		err = json.Unmarshal(f.Payload, e.Joined)
	case TypePresenceChanged:
		var p struct {
			Users []User `json:"users"`
		}
		err = json.Unmarshal(f.Payload, &p)
		e.Users = p.Users
	case TypeMessage:
		e.Message = &Message{}
		err = json.Unmarshal(f.Payload, e.Message)
	case TypeTypingChanged:
		e.Typing = &Typing{}
		err = json.Unmarshal(f.Payload, e.Typing)
	case TypeReceipt:
		e.Receipt = &Receipt{}
		err = json.Unmarshal(f.Payload, e.Receipt)
	case TypeTokenUpdate:
		var p struct {
			Token string `json:"token"`
		}
		err = json.Unmarshal(f.Payload, &p)
		e.Token = p.Token
	case TypeError:
		var p errorPayload
		err = json.Unmarshal(f.Payload, &p)
		e.Err = &Error{Kind: p.Kind, Code: p.Code, Message: p.Detail}
	}

	return e, err
}
