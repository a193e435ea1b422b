package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"

	"chatsync/internal/app/user"
)

const (
	// SessionAccessExpiration defines how long a session token stays valid before it must be refreshed.
	SessionAccessExpiration = 15 * time.Minute

	// TokenRefreshWindow defines how long before expiry a live session gets a fresh token.
	TokenRefreshWindow = 2 * time.Minute

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "chatsync"
)

// GenerateToken creates and signs a new JWT Token string based on the provided Payload struct.
func GenerateToken(payload *Payload, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	payload.StandardClaims = jwt.StandardClaims{
		ExpiresAt: now.Add(duration).Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    TokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ParseToken parses and validates the JWT Token string using the provided secretKey.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	if claims.SessionID == "" {
		return nil, errors.New("token has no session id")
	}

	return claims, nil
}

// Issuer mints session tokens with a fixed secret and lifetime.
type Issuer struct {
	Secret string
	TTL    time.Duration
}

// NewIssuer returns an Issuer using SessionAccessExpiration when ttl is not positive.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = SessionAccessExpiration
	}
	return &Issuer{Secret: secret, TTL: ttl}
}

// Issue signs a token for u and returns it with its expiry time.
func (i *Issuer) Issue(u user.User) (string, time.Time, error) {
	expiry := time.Now().Add(i.TTL)

	token, err := GenerateToken(&Payload{SessionID: u.ID, Username: u.Username}, i.Secret, i.TTL)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiry, nil
}
