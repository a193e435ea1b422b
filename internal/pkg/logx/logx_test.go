package logx

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestAnonymizeIP(t *testing.T) {
	cases := map[string]string{
		"203.0.113.77:4242":          "203.0.113.0",
		"127.0.0.1:80":               "127.0.0.1",
		"not-an-ip":                  "unknown_ip",
		"[2001:db8:1:2:3:4:5:6]:443": "2001:db8:1:2::",
	}

	for in, want := range cases {
		if got := AnonymizeIP(in); got != want {
			t.Fatalf("AnonymizeIP(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInitGlobalLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	InitGlobalLogger(Options{Level: "warn", Output: &buf})
	t.Cleanup(func() { InitGlobalLogger(Options{}) })

	Info("hidden")
	Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, `"key":"value"`) {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	InitGlobalLogger(Options{Output: &buf})
	t.Cleanup(func() { InitGlobalLogger(Options{}) })

	h := middleware.RequestID(RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/messages?skip=-1", nil))

	out := buf.String()
	if !strings.Contains(out, `"status":400`) {
		t.Fatalf("log output = %s, want status 400", out)
	}
	if !strings.Contains(out, `"component":"http"`) {
		t.Fatalf("log output = %s, want http component", out)
	}
}
