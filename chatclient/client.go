/*
Package chatclient is a Go client for the chat server.

A Client dials the websocket endpoint, joins under a username and exposes the server's
frames as a channel of decoded Events. Send helpers cover every inbound event, and History
reads the paginated message log over HTTP with the session token issued at join.
*/
package chatclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

// maxFrameBytes bounds inbound frames; file messages carry inline data URLs.
const maxFrameBytes = 16 << 20

// Client is a single chat session. It is safe for concurrent use.
type Client struct {
	cfg        Config
	logger     zerolog.Logger
	httpClient *http.Client

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	selfID string
	token  string
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a disconnected client. Use DefaultConfig() as a starting point.
func New(cfg Config) *Client {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}

	return &Client{
		cfg:        cfg,
		logger:     zerolog.Nop(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetLogger overrides the default no-op logger.
func (c *Client) SetLogger(l zerolog.Logger) {
	c.logger = l
}

// SetHTTPClient replaces the client used by History.
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SelfID returns the session id assigned at join.
func (c *Client) SelfID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfID
}

// Token returns the latest session token, refreshed by token-update frames.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Events returns the channel of server events for the current session. The
// joined event comes first. The channel is closed when the session ends.
func (c *Client) Events() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// Connect dials the server and joins under username. An empty username is
// rejected with a ValidationError before any network activity.
func (c *Client) Connect(ctx context.Context, username string) (*Joined, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return nil, &Error{Kind: KindValidation, Message: "username is required"}
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil, ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.mu.Unlock()

	joined, conn, err := c.handshake(ctx, name)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return nil, err
	}

	events := make(chan Event, c.cfg.EventBuffer)
	events <- Event{Type: TypeJoined, Joined: joined}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.state = StateJoined
	c.conn = conn
	c.selfID = joined.SelfID
	c.token = joined.Token
	c.events = events
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	c.logger.Debug().Str("session_id", joined.SelfID).Int("online", len(joined.Users)).Msg("Joined chat")

	go c.readLoop(runCtx, conn, events, done)
	return joined, nil
}

func (c *Client) handshake(ctx context.Context, name string) (*Joined, *websocket.Conn, error) {
	if c.cfg.URL == "" {
		return nil, nil, &Error{Kind: KindValidation, Message: "empty URL"}
	}

	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, nil, connectionError("dial failed", err)
	}
	conn.SetReadLimit(maxFrameBytes)

	if err := wsjson.Write(ctx, conn, outbound{Type: TypeJoin, Payload: map[string]string{"username": name}}); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake error")
		return nil, nil, connectionError("join failed", err)
	}

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			_ = conn.Close(websocket.StatusInternalError, "handshake error")
			return nil, nil, connectionError("join failed", err)
		}

		e, err := decodeEvent(f)
		if err != nil {
			_ = conn.Close(websocket.StatusInternalError, "handshake error")
			return nil, nil, connectionError("malformed frame", err)
		}

		switch e.Type {
		case TypeJoined:
			return e.Joined, conn, nil
		case TypeError:
			_ = conn.Close(websocket.StatusNormalClosure, "join rejected")
			return nil, nil, e.Err
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, events chan<- Event, done chan<- struct{}) {
	defer close(done)
	defer close(events)
	defer c.teardown(conn)

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.logger.Warn().Err(err).Msg("read loop exit")
			}
			return
		}

		e, err := decodeEvent(f)
		if err != nil {
			c.logger.Warn().Err(err).Str("type", f.Type).Msg("dropping malformed frame")
			continue
		}

		if e.Type == TypeTokenUpdate {
			c.mu.Lock()
			c.token = e.Token
			c.mu.Unlock()
		}

		select {
		case events <- e:
		case <-ctx.Done():
			return
		}
	}
}

// teardown returns the client to Disconnected if conn is still the active socket.
func (c *Client) teardown(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.state = StateDisconnected
		c.conn = nil
		if c.cancel != nil {
			c.cancel()
		}
	}
	c.mu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// Close ends the session and waits for the read loop to stop.
func (c *Client) Close() error {
	c.mu.Lock()
	conn, cancel, done := c.conn, c.cancel, c.done
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close(websocket.StatusNormalClosure, "client close")
	cancel()
	<-done

	if err != nil && websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
		c.logger.Debug().Err(err).Msg("close handshake failed")
	}
	return nil
}

// Send publishes a message to every online user.
func (c *Client) Send(ctx context.Context, body string) error {
	if strings.TrimSpace(body) == "" {
		return &Error{Kind: KindValidation, Message: "message is empty"}
	}
	return c.write(ctx, TypeMessage, map[string]string{"body": body})
}

// SendPrivate sends a message to one online user.
func (c *Client) SendPrivate(ctx context.Context, recipientID, body string) error {
	if strings.TrimSpace(body) == "" {
		return &Error{Kind: KindValidation, Message: "message is empty"}
	}
	if recipientID == "" {
		return &Error{Kind: KindValidation, Message: "recipient is required"}
	}
	return c.write(ctx, TypePrivateMessage, map[string]string{"recipientId": recipientID, "body": body})
}

// SendFile sends an attachment, publicly when recipientID is empty.
func (c *Client) SendFile(ctx context.Context, recipientID, fileName, mimeType string, data []byte) error {
	if fileName == "" || len(data) == 0 {
		return &Error{Kind: KindValidation, Message: "file name and data are required"}
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	return c.write(ctx, TypeFile, map[string]string{
		"recipientId": recipientID,
		"fileName":    fileName,
		"mimeType":    mimeType,
		"data":        "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
	})
}

// SetTyping toggles the typing flag, towards recipientID when it is set.
func (c *Client) SetTyping(ctx context.Context, isTyping bool, recipientID string) error {
	return c.write(ctx, TypeTyping, map[string]any{"isTyping": isTyping, "recipientId": recipientID})
}

// MarkRead records that this session read messageID.
func (c *Client) MarkRead(ctx context.Context, messageID int64) error {
	return c.write(ctx, TypeRead, map[string]int64{"messageId": messageID})
}

// Leave asks the server to end the session. The Events channel closes once the
// server has closed the socket.
func (c *Client) Leave(ctx context.Context) error {
	return c.write(ctx, TypeLeave, struct{}{})
}

func (c *Client) write(ctx context.Context, typ string, payload any) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()

	if state != StateJoined || conn == nil {
		return ErrNotJoined
	}

	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}

	if err := wsjson.Write(ctx, conn, outbound{Type: typ, Payload: payload}); err != nil {
		return connectionError("write failed", err)
	}
	return nil
}

// History fetches one page of the message log, oldest-first. With a session
// token the page includes this session's private messages.
func (c *Client) History(ctx context.Context, skip, limit int) ([]Message, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil || c.cfg.BaseURL == "" {
		return nil, &Error{Kind: KindValidation, Message: "invalid base URL", Wrapped: err}
	}
	u = u.JoinPath("api", "messages")

	q := u.Query()
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, connectionError("history request failed", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var envelope struct {
			Code    int    `json:"code"`
			Kind    string `json:"kind"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
			return nil, &Error{Kind: KindConnection, Message: res.Status}
		}
		return nil, &Error{Kind: envelope.Kind, Code: envelope.Code, Message: envelope.Message}
	}

	var page []Message
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return page, nil
}
