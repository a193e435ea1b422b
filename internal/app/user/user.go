/*
Package user contains core data structures related to participant identity.

It defines the basic representation of a connected participant (the User struct),
used for passing user information both internally and to clients.
*/
package user

import (
	"strings"
	"unicode/utf8"

	"chatsync/internal/pkg/errs"
)

// MaxUsernameRunes bounds display names so presence lists stay renderable.
const MaxUsernameRunes = 32

// User represents a connected participant. Identity is always the session ID;
// usernames are display names and may repeat across sessions.
type User struct {
	// ID is the opaque session identifier assigned when the connection was accepted.
	ID string `json:"id"`

	// Username is the display name chosen at join time.
	Username string `json:"username"`
}

// NormalizeUsername trims surrounding whitespace and validates the display name.
func NormalizeUsername(raw string) (string, *errs.CustomError) {
	name := strings.TrimSpace(raw)

	if name == "" {
		return "", errs.NewError(errs.ErrUsernameRequired)
	}

	if utf8.RuneCountInString(name) > MaxUsernameRunes {
		return "", errs.NewError(errs.ErrUsernameTooLong, MaxUsernameRunes)
	}

	return name, nil
}
