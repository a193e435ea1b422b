package chatclient

import "time"

// Config controls how the client connects.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	URL string

	// BaseURL is the HTTP root used for history, e.g. http://localhost:8080.
	BaseURL string

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// EventBuffer is the capacity of the Events channel.
	EventBuffer int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		EventBuffer:      256,
	}
}
