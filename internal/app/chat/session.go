/*
Package chat contains the realtime synchronization core: sessions, presence, typing state,
message routing and the hub that serializes every mutation of shared state.

This file defines the Session, one websocket connection. Its ReadPump decodes and validates
inbound frames and forwards them to the hub in receipt order; its WritePump drains the
session's queue onto the socket, keeps the connection alive and refreshes the session token.
*/
package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatsync/internal/app/storage"
	"chatsync/internal/app/user"
	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// capacity of a session's outbound queue.
	sendBuffer = 256

	// frameOverhead is the allowance for JSON framing around a file payload.
	frameOverhead = 64 * 1024
)

// Session is one connected websocket. It becomes visible to other users once
// the hub accepts its join.
type Session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn

	// a buffered channel used to queue frames waiting to be written.
	send chan []byte

	// mu guards closed, user and tokenExpiry.
	mu          sync.Mutex
	closed      bool
	user        user.User
	tokenExpiry time.Time

	logger zerolog.Logger
}

func newSession(h *Hub, conn *websocket.Conn) *Session {
	id := randx.SessionID()

	return &Session{
		id:     id,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: logx.Logger().With().Str("session_id", id).Logger(),
	}
}

// ID returns the opaque session identifier.
func (s *Session) ID() string {
	return s.id
}

// User returns the joined identity, zero before join.
func (s *Session) User() user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) setUser(u user.User, tokenExpiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.tokenExpiry = tokenExpiry
}

// enqueue queues frame without blocking. It reports false only when the queue
// is full; frames for a closed session are dropped silently.
func (s *Session) enqueue(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return true
	}

	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue once. WritePump then sends a close frame.
func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), frame parsing, and performs cleanup upon connection closure.
func (s *Session) ReadPump() {
	defer s.cleanupOnDisconnect()

	s.conn.SetReadLimit(int64(maxFrameSize(s.hub.opts.MaxFileBytes)))

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			return
		}

		if !s.processInbound(data) {
			return
		}
	}
}

// cleanupOnDisconnect hands the disconnect to the hub and waits until it is
// queued, so nothing this session sent afterwards can be processed first.
func (s *Session) cleanupOnDisconnect() {
	if !s.hub.submit(command{session: s, event: eventDisconnect}) {
		s.closeSend()
	}

	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Connection close error")
	}
}

// processInbound decodes one frame and submits it to the hub. It reports false
// once the hub has stopped.
func (s *Session) processInbound(data []byte) bool {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.logger.Warn().Err(err).Int("size", len(data)).Msg("Client sent invalid JSON")
		s.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return true
	}

	cmd, customErr := s.decode(frame)
	if customErr != nil {
		s.SendError(customErr)
		return true
	}

	if cmd.file != nil {
		if customErr := s.offload(cmd.file); customErr != nil {
			s.SendError(customErr)
			return true
		}
	}

	if !s.hub.submit(cmd) {
		s.hub.discardAttachment(cmd.file)
		return false
	}
	return true
}

// decode validates a frame's payload and turns it into a hub command.
func (s *Session) decode(frame Frame) (command, *errs.CustomError) {
	cmd := command{session: s, event: frame.Type}
	opts := s.hub.opts

	switch frame.Type {
	case EventJoin:
		var p JoinPayload
		if err := unmarshalPayload(frame.Payload, &p); err != nil {
			return cmd, err
		}
		cmd.username = p.Username

	case EventMessage:
		var p MessagePayload
		if err := unmarshalPayload(frame.Payload, &p); err != nil {
			return cmd, err
		}
		if err := validateBody(p.Body, opts.MaxTextBytes); err != nil {
			return cmd, err
		}
		cmd.body = p.Body

	case EventPrivateMessage:
		var p PrivateMessagePayload
		if err := unmarshalPayload(frame.Payload, &p); err != nil {
			return cmd, err
		}
		if strings.TrimSpace(p.RecipientID) == "" {
			return cmd, errs.NewError(errs.ErrInvalidParams)
		}
		if err := validateBody(p.Body, opts.MaxTextBytes); err != nil {
			return cmd, err
		}
		cmd.recipientID = p.RecipientID
		cmd.body = p.Body

	case EventFile:
		var p FilePayload
		if err := unmarshalPayload(frame.Payload, &p); err != nil {
			return cmd, err
		}
		file, err := DecodeFile(p, opts.MaxFileBytes)
		if err != nil {
			return cmd, err
		}
		cmd.recipientID = p.RecipientID
		cmd.file = file

	case EventTyping:
		var p TypingPayload
		if err := unmarshalPayload(frame.Payload, &p); err != nil {
			return cmd, err
		}
		cmd.isTyping = p.IsTyping
		cmd.recipientID = p.RecipientID

	case EventRead:
		var p ReadPayload
		if err := unmarshalPayload(frame.Payload, &p); err != nil {
			return cmd, err
		}
		if p.MessageID <= 0 {
			return cmd, errs.NewError(errs.ErrInvalidParams)
		}
		cmd.messageID = p.MessageID

	case EventLeave:

	default:
		return cmd, errs.NewError(errs.ErrUnsupportedEvent, string(frame.Type))
	}

	return cmd, nil
}

// offload uploads the attachment bytes when blob storage is configured.
func (s *Session) offload(file *Attachment) *errs.CustomError {
	blobs := s.hub.opts.Blobs
	if blobs == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(s.hub.ctx, s.hub.opts.UploadTimeout)
	defer cancel()

	key := randx.AttachmentKey(file.FileName)
	err := blobs.Upload(ctx, storage.Object{
		Key:      key,
		FileName: file.FileName,
		MimeType: file.MimeType,
		Data:     file.Data,
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("size", file.Size()).Msg("Attachment upload failed")
		return errs.NewError(errs.ErrFileStorageFailed)
	}

	file.Key = key
	file.Data = nil
	return nil
}

func unmarshalPayload(raw json.RawMessage, v any) *errs.CustomError {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}
	return nil
}

func validateBody(body string, maxBytes int) *errs.CustomError {
	if strings.TrimSpace(body) == "" {
		return errs.NewError(errs.ErrMessageContentEmpty)
	}
	if len(body) > maxBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}
	return nil
}

// maxFrameSize is the largest inbound frame: a base64 encoded file plus framing.
func maxFrameSize(maxFileBytes int) int {
	return (maxFileBytes+2)/3*4 + frameOverhead
}

// WritePump handles writing frames from the send channel to the WebSocket connection.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !s.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !s.writePing() {
				return
			}

			if !s.refreshToken() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one queued frame, or a close frame once the queue is closed.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (s *Session) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
			s.logger.Debug().Err(err).Msg("Error writing close frame")
		}
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.logger.Warn().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePing sends a periodic WebSocket Ping message to maintain the connection heartbeat.
func (s *Session) writePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// refreshToken writes a token-update frame when the session token is about to expire.
// Returns false if the write failed.
func (s *Session) refreshToken() bool {
	s.mu.Lock()
	u, expiry := s.user, s.tokenExpiry
	s.mu.Unlock()

	if u.ID == "" || time.Until(expiry) > jwt.TokenRefreshWindow {
		return true
	}

	token, newExpiry, err := s.hub.opts.Tokens.Issue(u)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate new token. Aborting refresh.")
		return true
	}

	frame, err := Encode(EventTokenUpdate, TokenUpdatePayload{Token: token})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build token-update frame.")
		return true
	}

	if !s.writeQueuedFrame(frame, true) {
		return false
	}

	s.mu.Lock()
	s.tokenExpiry = newExpiry
	s.mu.Unlock()

	s.logger.Debug().Time("expires_at", newExpiry).Msg("Session token refreshed.")
	return true
}

// SendError queues an error frame for this session only.
func (s *Session) SendError(customErr *errs.CustomError) {
	if !s.enqueue(encodeError(customErr)) {
		s.logger.Warn().Int("code", customErr.Code).Msg("Send queue full, dropping error frame")
	}
}
