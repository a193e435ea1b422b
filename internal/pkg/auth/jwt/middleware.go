package jwt

import (
	"context"
	"net/http"

	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/randx"
	"chatsync/internal/pkg/req"
)

// Define Context Key for storing the Payload struct, preventing key collisions with other packages.
type contextKey string

const (
	// ContextAuthPayloadKey is the key used to store the parsed jwt.Payload (session identity) in the request Context.
	ContextAuthPayloadKey contextKey = "auth_payload"
)

// IdentityExtractorMiddleware attempts to extract and validate a session token from the request.
// It injects the Payload into the Context upon success. It does NOT interrupt the request
// on failure or missing token, treating the caller as anonymous instead.
func IdentityExtractorMiddleware(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := req.BearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			payload, err := ParseToken(tokenString, secretKey)
			if err != nil {
				logx.Warn("Invalid or expired session token provided, treating as anonymous", "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}
			if !randx.IsValidSessionID(payload.SessionID) {
				logx.Warn("Session token carries a malformed session id, treating as anonymous", "sid", payload.SessionID)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext safely extracts the authenticated Payload from the request Context.
// A nil return means the caller is anonymous.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)

	if !ok {
		return nil
	}

	return payload
}

// ViewerID returns the session id of the caller, or "" for anonymous requests.
func ViewerID(r *http.Request) string {
	if payload := GetPayloadFromContext(r); payload != nil {
		return payload.SessionID
	}
	return ""
}
