package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims carried by a chat session token.
// The token lets pull-based endpoints (history, file download) identify the
// session that is reading, so private threads can be included.
type Payload struct {
	// StandardClaims embeds Exp (Expiration), Iat (Issued At) and Iss (Issuer).
	jwt.StandardClaims

	// SessionID is the opaque id assigned to the connection at join time.
	SessionID string `json:"sid"`

	// Username is the display name the session joined with.
	Username string `json:"username"`
}
