/*
Package chat contains the realtime synchronization core: sessions, presence, typing state,
message routing and the hub that serializes every mutation of shared state.

This file defines the Hub, the single event loop of the chat. Every session command
(join, send, typing, read, leave, disconnect) is queued on one FIFO channel and handled
sequentially, so presence, typing and persistence never interleave.
*/
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatsync/internal/app/storage"
	"chatsync/internal/app/store"
	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/logx"
)

const (
	// commandBuffer is the capacity of the hub's inbound queue.
	commandBuffer = 1024

	// DefaultTypingTTL is how long a typing flag survives without a refresh.
	DefaultTypingTTL = 10 * time.Second

	// DefaultMaxTextBytes bounds text message bodies.
	DefaultMaxTextBytes = 5000

	// DefaultOpTimeout bounds one store operation including its retries.
	DefaultOpTimeout = 10 * time.Second

	// DefaultUploadTimeout bounds one attachment upload.
	DefaultUploadTimeout = 15 * time.Second
)

// Options configures a Hub.
type Options struct {
	// Store persists messages. Required.
	Store store.Store

	// Blobs offloads attachment bytes. Nil keeps attachments inline.
	Blobs storage.BlobStore

	// Tokens issues session tokens. Required.
	Tokens *jwt.Issuer

	TypingTTL     time.Duration
	MaxTextBytes  int
	MaxFileBytes  int
	OpTimeout     time.Duration
	UploadTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.TypingTTL <= 0 {
		o.TypingTTL = DefaultTypingTTL
	}
	if o.MaxTextBytes <= 0 {
		o.MaxTextBytes = DefaultMaxTextBytes
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = DefaultMaxFileBytes
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = DefaultOpTimeout
	}
	if o.UploadTimeout <= 0 {
		o.UploadTimeout = DefaultUploadTimeout
	}
}

// command is one unit of work for the hub loop.
type command struct {
	session *Session
	event   EventType

	username    string
	body        string
	recipientID string
	file        *Attachment
	isTyping    bool
	messageID   int64
}

// Hub owns all shared chat state. Only the goroutine running Run touches it.
type Hub struct {
	opts Options

	presence  *Presence
	typing    *Typing
	connected map[*Session]struct{}

	// slow collects sessions whose queue overflowed during the current command.
	slow []*Session

	commands chan command
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// ctx is cancelled when the hub stops and bounds every store call.
	ctx    context.Context
	cancel context.CancelFunc

	// background tracks blob cleanups started by the loop.
	background sync.WaitGroup

	logger zerolog.Logger
}

// NewHub constructs a Hub. Call Run to start processing.
func NewHub(opts Options) *Hub {
	opts.applyDefaults()

	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		opts:      opts,
		presence:  NewPresence(),
		typing:    NewTyping(opts.TypingTTL),
		connected: make(map[*Session]struct{}),
		commands:  make(chan command, commandBuffer),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logx.Component("Hub"),
	}
}

// Run processes commands until Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	sweep := time.NewTicker(sweepInterval(h.opts.TypingTTL))
	defer sweep.Stop()

	h.logger.Info().Dur("typing_ttl", h.opts.TypingTTL).Msg("Hub started.")

	for {
		select {
		case cmd := <-h.commands:
			h.handle(cmd)
			h.reapSlow()

		case now := <-sweep.C:
			h.publishTyping(h.typing.Expire(now))
			h.reapSlow()

		case <-h.stop:
			h.closeAll()
			h.logger.Info().Msg("Hub stopped.")
			return
		}
	}
}

// Shutdown stops the loop, closes every session and waits for the loop and
// pending blob cleanups to finish or ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stop) })

	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	h.cancel()

	waited := make(chan struct{})
	go func() {
		h.background.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve attaches a websocket connection as a new session and blocks until the
// connection ends.
func (h *Hub) Serve(conn *websocket.Conn) {
	s := newSession(h, conn)

	if !h.submit(command{session: s, event: eventConnect}) {
		_ = conn.Close()
		return
	}

	go s.WritePump()
	s.ReadPump()
}

// submit queues cmd for the loop. It blocks while the queue is full and reports
// false once the hub has stopped.
func (h *Hub) submit(cmd command) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.commands <- cmd:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) handle(cmd command) {
	s := cmd.session

	switch cmd.event {
	case eventConnect:
		h.connected[s] = struct{}{}
		return
	case eventDisconnect:
		h.disconnect(s, "connection closed")
		return
	case EventJoin:
		h.join(s, cmd.username)
		return
	}

	if _, ok := h.presence.Find(s.ID()); !ok {
		h.discardAttachment(cmd.file)
		h.reject(s, errNotJoined())
		return
	}

	switch cmd.event {
	case EventMessage:
		h.broadcast(s, store.Message{Body: cmd.body})
	case EventPrivateMessage:
		h.route(s, cmd.recipientID, store.Message{Body: cmd.body})
	case EventFile:
		draft := fileDraft(cmd.file)
		if cmd.recipientID == "" {
			h.broadcast(s, draft)
		} else {
			h.route(s, cmd.recipientID, draft)
		}
	case EventTyping:
		h.setTyping(s, cmd.isTyping, cmd.recipientID)
	case EventRead:
		h.markRead(s, cmd.messageID)
	case EventLeave:
		h.disconnect(s, "left")
	default:
		h.logger.Warn().Str("event", string(cmd.event)).Msg("Dropping unknown hub command.")
	}
}

// disconnect runs the leave cleanup for s. Repeated calls are no-ops.
func (h *Hub) disconnect(s *Session, reason string) {
	delete(h.connected, s)
	s.closeSend()

	if !h.presence.Remove(s.ID()) {
		return
	}

	u := s.User()
	h.logger.Info().
		Str("session_id", u.ID).
		Str("username", u.Username).
		Str("reason", reason).
		Int("online", h.presence.Len()).
		Msg("Session left.")

	h.publishTyping(h.typing.Forget(u.ID))

	remaining := h.presence.Sessions()
	h.sendPresence(remaining)
	h.announce(remaining, u.Username+" left the chat")
}

func (h *Hub) closeAll() {
	for s := range h.connected {
		s.closeSend()
	}
	h.connected = make(map[*Session]struct{})
}

// markSlow records a session whose send queue overflowed. It is disconnected
// after the current command so fan-out loops never mutate presence.
func (h *Hub) markSlow(s *Session) {
	h.slow = append(h.slow, s)
}

func (h *Hub) reapSlow() {
	for len(h.slow) > 0 {
		s := h.slow[0]
		h.slow = h.slow[1:]

		if _, ok := h.presence.Find(s.ID()); ok {
			h.logger.Warn().Str("session_id", s.ID()).Msg("Send queue full, disconnecting slow session.")
		}
		h.disconnect(s, "slow consumer")
	}
	h.slow = nil
}

// opContext bounds one store operation.
func (h *Hub) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(h.ctx, h.opts.OpTimeout)
}

// discardAttachment deletes an offloaded blob that will never be referenced.
func (h *Hub) discardAttachment(a *Attachment) {
	if a == nil || a.Key == "" || h.opts.Blobs == nil {
		return
	}

	blobs := h.opts.Blobs
	h.background.Add(1)
	go func() {
		defer h.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), h.opts.UploadTimeout)
		defer cancel()

		if err := blobs.Delete(ctx, a.Key); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Warn().Err(err).Str("key", a.Key).Msg("Failed to delete orphaned attachment.")
		}
	}()
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < 250*time.Millisecond {
		interval = 250 * time.Millisecond
	}
	if interval > 2*time.Second {
		interval = 2 * time.Second
	}
	return interval
}
