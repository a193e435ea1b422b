/*
Package req provides helper functions for HTTP request parsing.

It encapsulates query-string integer parsing with bounds checking and bearer token
extraction, returning errs.CustomError values that handlers can respond with directly.
*/
package req

import (
	"net/http"
	"strconv"
	"strings"

	"chatsync/internal/pkg/errs"
)

// TokenQueryKey is the query parameter accepted as a fallback for the Authorization header.
// Browsers cannot attach headers to plain download links.
const TokenQueryKey = "token"

// QueryInt reads a non-negative integer query parameter. A missing or empty value yields def.
// Negative or non-numeric values produce the supplied error code.
func QueryInt(r *http.Request, name string, def int, code int) (int, *errs.CustomError) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errs.NewError(code)
	}

	return value, nil
}

// BearerToken extracts a token from "Authorization: Bearer <token>" or, failing that,
// from the token query parameter. It returns an empty string when neither is present.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	return strings.TrimSpace(r.URL.Query().Get(TokenQueryKey))
}
