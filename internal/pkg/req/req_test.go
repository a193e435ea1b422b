package req

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chatsync/internal/pkg/errs"
)

func TestQueryInt(t *testing.T) {
	cases := []struct {
		url     string
		want    int
		wantErr bool
	}{
		{url: "/messages", want: 20},
		{url: "/messages?limit=", want: 20},
		{url: "/messages?limit=5", want: 5},
		{url: "/messages?limit=0", want: 0},
		{url: "/messages?limit=-1", wantErr: true},
		{url: "/messages?limit=abc", wantErr: true},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, tc.url, nil)
		got, err := QueryInt(r, "limit", 20, errs.ErrInvalidPagination)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.url)
			}
			if err.Code != errs.ErrInvalidPagination {
				t.Fatalf("%s: code = %d, want %d", tc.url, err.Code, errs.ErrInvalidPagination)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.url, err)
		}
		if got != tc.want {
			t.Fatalf("%s: value = %d, want %d", tc.url, got, tc.want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/messages?token=from-query", nil)
	if got := BearerToken(r); got != "from-query" {
		t.Fatalf("token = %q, want from-query", got)
	}

	r.Header.Set("Authorization", "Bearer from-header")
	if got := BearerToken(r); got != "from-header" {
		t.Fatalf("token = %q, want from-header", got)
	}

	r.Header.Set("Authorization", "Basic abc")
	if got := BearerToken(r); got != "" {
		t.Fatalf("token = %q, want empty for non-bearer scheme", got)
	}
}
