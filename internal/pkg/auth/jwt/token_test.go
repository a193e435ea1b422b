package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatsync/internal/app/user"
	"chatsync/internal/pkg/randx"
)

const testSecret = "test-secret"

func TestIssueAndParseRoundTrip(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Minute)

	token, expiry, err := issuer.Issue(user.User{ID: "sess-1", Username: "alice"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expiry) <= 0 {
		t.Fatalf("expiry = %v, want future", expiry)
	}

	payload, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.SessionID != "sess-1" || payload.Username != "alice" {
		t.Fatalf("payload = %+v, want sess-1/alice", payload)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewIssuer(testSecret, time.Minute).Issue(user.User{ID: "sess-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken(&Payload{SessionID: "sess-1"}, testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ParseToken(token, testSecret); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestIdentityExtractorMiddleware(t *testing.T) {
	sid := randx.SessionID()
	token, _, err := NewIssuer(testSecret, time.Minute).Issue(user.User{ID: sid, Username: "bob"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen string
	h := IdentityExtractorMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ViewerID(r)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != sid {
		t.Fatalf("viewer = %q, want %s", seen, sid)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/messages?token=garbage", nil)
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "" {
		t.Fatalf("viewer = %q, want anonymous for invalid token", seen)
	}
}

func TestIdentityExtractorMiddlewareRejectsMalformedSessionID(t *testing.T) {
	token, _, err := NewIssuer(testSecret, time.Minute).Issue(user.User{ID: "sess-9", Username: "bob"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	seen := "unset"
	h := IdentityExtractorMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ViewerID(r)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "" {
		t.Fatalf("viewer = %q, want anonymous for a non-session sid", seen)
	}
}
