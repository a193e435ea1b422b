package chat

import (
	"context"
	"errors"
	"time"

	"chatsync/internal/app/store"
	"chatsync/internal/app/user"
	"chatsync/internal/pkg/errs"
)

// The methods in this file run on the hub goroutine only.

func errNotJoined() *errs.CustomError {
	return errs.NewError(errs.ErrNotJoined)
}

// storeError maps a store failure to the error reported to the client.
func storeError(err error) *errs.CustomError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errs.NewError(errs.ErrMessageNotFound)
	case errors.Is(err, store.ErrInvalidMessage):
		return errs.NewError(errs.ErrInvalidParams)
	case store.IsTransient(err), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errs.NewError(errs.ErrStoreUnavailable)
	default:
		return errs.NewError(errs.ErrUnknown)
	}
}

func fileDraft(a *Attachment) store.Message {
	m := store.Message{
		IsFile:   true,
		FileName: a.FileName,
		MimeType: a.MimeType,
		FileSize: a.Size(),
		FileKey:  a.Key,
	}
	if a.Key == "" {
		m.FileData = a.DataURL()
	}
	return m
}

// join admits s under username, answers with the current user list and tells
// everyone else about the new user.
func (h *Hub) join(s *Session, username string) {
	if _, ok := h.presence.Find(s.ID()); ok {
		h.reject(s, errs.NewError(errs.ErrAlreadyJoined))
		return
	}
	if s.isClosed() {
		return
	}

	name, customErr := user.NormalizeUsername(username)
	if customErr != nil {
		h.reject(s, customErr)
		return
	}

	u := user.User{ID: s.ID(), Username: name}
	token, expiry, err := h.opts.Tokens.Issue(u)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", u.ID).Msg("Failed to issue session token.")
		h.reject(s, errs.NewError(errs.ErrUnknown))
		return
	}

	others := h.presence.Sessions()

	s.setUser(u, expiry)
	h.presence.Add(s)

	h.logger.Info().
		Str("session_id", u.ID).
		Str("username", u.Username).
		Int("online", h.presence.Len()).
		Msg("Session joined.")

	users := h.presence.List()
	h.sendTo(s, EventJoined, JoinedPayload{SelfID: u.ID, Users: users, Token: token})

	if snapshot := h.typing.Snapshot(GlobalScope); len(snapshot) > 0 {
		h.sendTo(s, EventTypingChanged, TypingChangedPayload{Users: snapshot})
	}

	h.sendPresence(others)
	h.announce(others, u.Username+" joined the chat")
}

// broadcast persists a public message from s and delivers it to every joined
// session, the sender included.
func (h *Hub) broadcast(s *Session, draft store.Message) {
	sender := s.User()
	draft.SenderID = sender.ID
	draft.Sender = sender.Username

	m, ok := h.persist(s, draft)
	if !ok {
		return
	}

	h.clearTyping(sender.ID)
	h.deliverMessage(h.presence.Sessions(), m)
}

// route persists a private message from s to recipientID and delivers it to the
// two participants only.
func (h *Hub) route(s *Session, recipientID string, draft store.Message) {
	sender := s.User()

	if recipientID == sender.ID {
		h.discardAttachment(attachmentOf(draft))
		h.reject(s, errs.NewError(errs.ErrSelfRecipient))
		return
	}

	recipient, ok := h.presence.Find(recipientID)
	if !ok {
		h.discardAttachment(attachmentOf(draft))
		h.reject(s, errs.NewError(errs.ErrRecipientNotFound))
		return
	}

	draft.SenderID = sender.ID
	draft.Sender = sender.Username
	draft.IsPrivate = true
	draft.RecipientID = recipientID

	m, ok := h.persist(s, draft)
	if !ok {
		return
	}

	h.clearTyping(sender.ID)
	h.deliverMessage([]*Session{s, recipient}, m)
}

// markRead records that s read messageID and sends the updated receipt to the
// message's participants that are online.
func (h *Hub) markRead(s *Session, messageID int64) {
	reader := s.ID()

	ctx, cancel := h.opContext()
	defer cancel()

	m, err := h.opts.Store.Get(ctx, messageID)
	if err != nil {
		h.reject(s, storeError(err))
		return
	}
	if !m.VisibleTo(reader) {
		h.reject(s, errs.NewError(errs.ErrMessageNotFound))
		return
	}
	if m.System || m.SenderID == reader || m.HasReader(reader) {
		return
	}

	m, changed, err := h.opts.Store.MarkRead(ctx, messageID, reader)
	if err != nil {
		h.logger.Warn().Err(err).Int64("message_id", messageID).Msg("Failed to record read receipt.")
		h.reject(s, storeError(err))
		return
	}
	if !changed {
		return
	}

	receipt := ReceiptPayload{MessageID: m.ID, ReadBy: m.ForWire().ReadBy, ReadCount: len(m.ReadBy)}
	frame, err := Encode(EventReceipt, receipt)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode receipt.")
		return
	}

	var targets []*Session
	for _, id := range m.Participants() {
		if target, ok := h.presence.Find(id); ok {
			targets = append(targets, target)
		}
	}
	h.deliver(targets, frame)
}

// setTyping updates the typing flag of s, globally or towards recipientID.
func (h *Hub) setTyping(s *Session, isTyping bool, recipientID string) {
	u := s.User()

	scope := GlobalScope
	if recipientID != "" {
		if recipientID == u.ID {
			return
		}
		if _, ok := h.presence.Find(recipientID); !ok {
			h.logger.Debug().Str("session_id", u.ID).Str("recipient_id", recipientID).Msg("Ignoring typing towards offline user.")
			return
		}
		scope = PairScope(u.ID, recipientID)
	}

	h.publishTyping(h.typing.Set(u.ID, u.Username, isTyping, scope))
}

func (h *Hub) clearTyping(userID string) {
	h.publishTyping(h.typing.Clear(userID))
}

// publishTyping sends the snapshot of each changed scope to the sessions that can see it.
func (h *Hub) publishTyping(scopes []Scope) {
	for _, scope := range scopes {
		snapshot := h.typing.Snapshot(scope)

		if scope.IsGlobal() {
			h.sendAll(h.presence.Sessions(), EventTypingChanged, TypingChangedPayload{Users: snapshot})
			continue
		}

		a, b := scope.Members()
		for _, id := range []string{a, b} {
			member, ok := h.presence.Find(id)
			if !ok {
				continue
			}
			h.sendTo(member, EventTypingChanged, TypingChangedPayload{RecipientID: scope.Other(id), Users: snapshot})
		}
	}
}

// persist appends draft and reports the error to s on failure.
func (h *Hub) persist(s *Session, draft store.Message) (store.Message, bool) {
	ctx, cancel := h.opContext()
	defer cancel()

	m, err := h.opts.Store.Append(ctx, draft)
	if err != nil {
		h.logger.Warn().Err(err).Str("session_id", s.ID()).Bool("private", draft.IsPrivate).Msg("Failed to persist message.")
		h.discardAttachment(attachmentOf(draft))
		h.reject(s, storeError(err))
		return store.Message{}, false
	}
	return m, true
}

// announce delivers a live system notice to targets. Notices are not persisted
// and carry id 0; history holds chat content only.
func (h *Hub) announce(targets []*Session, body string) {
	h.deliverMessage(targets, store.Message{
		System:    true,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
}

func (h *Hub) sendPresence(targets []*Session) {
	h.sendAll(targets, EventPresenceChanged, PresencePayload{Users: h.presence.List()})
}

func (h *Hub) deliverMessage(targets []*Session, m store.Message) {
	frame, err := encodeMessage(m)
	if err != nil {
		h.logger.Error().Err(err).Int64("message_id", m.ID).Msg("Failed to encode message.")
		return
	}
	h.deliver(targets, frame)
}

func (h *Hub) sendTo(s *Session, t EventType, payload any) {
	h.sendAll([]*Session{s}, t, payload)
}

func (h *Hub) sendAll(targets []*Session, t EventType, payload any) {
	if len(targets) == 0 {
		return
	}
	frame, err := Encode(t, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(t)).Msg("Failed to encode event.")
		return
	}
	h.deliver(targets, frame)
}

// deliver queues frame on every target in order. Overflowing sessions are
// disconnected after the current command.
func (h *Hub) deliver(targets []*Session, frame []byte) {
	for _, target := range targets {
		if !target.enqueue(frame) {
			h.markSlow(target)
		}
	}
}

// reject reports err to s only.
func (h *Hub) reject(s *Session, err *errs.CustomError) {
	if !s.enqueue(encodeError(err)) {
		h.markSlow(s)
	}
}

func attachmentOf(m store.Message) *Attachment {
	if m.FileKey == "" {
		return nil
	}
	return &Attachment{Key: m.FileKey}
}
