package chat

import (
	"slices"
	"time"
)

// Scope is where a typing flag is visible: the global room or one private pair.
// The zero value is the global scope.
type Scope struct {
	a, b string
}

// GlobalScope is the scope of the shared room.
var GlobalScope = Scope{}

// PairScope returns the scope shared by x and y, independent of argument order.
func PairScope(x, y string) Scope {
	if x > y {
		x, y = y, x
	}
	return Scope{a: x, b: y}
}

// IsGlobal reports whether s is the global scope.
func (s Scope) IsGlobal() bool {
	return s == GlobalScope
}

// Members returns the two session ids of a pair scope.
func (s Scope) Members() (string, string) {
	return s.a, s.b
}

// Other returns the member of the pair that is not id.
func (s Scope) Other(id string) string {
	if s.a == id {
		return s.b
	}
	return s.a
}

type typingEntry struct {
	name    string
	scope   Scope
	expires time.Time
}

// Typing tracks who is typing where. A user types in at most one scope at a time.
// Entries expire after ttl without a refresh so a lost stop signal cannot leave
// a user typing forever. It is owned by the hub goroutine.
type Typing struct {
	ttl     time.Duration
	entries map[string]typingEntry
	now     func() time.Time
}

// NewTyping returns a tracker whose entries live for ttl. A non-positive ttl disables expiry.
func NewTyping(ttl time.Duration) *Typing {
	return &Typing{ttl: ttl, entries: make(map[string]typingEntry), now: time.Now}
}

// Set applies a typing signal and returns the scopes whose snapshot changed.
func (t *Typing) Set(userID, name string, isTyping bool, scope Scope) []Scope {
	prev, had := t.entries[userID]

	if !isTyping {
		if !had {
			return nil
		}
		delete(t.entries, userID)
		return []Scope{prev.scope}
	}

	entry := typingEntry{name: name, scope: scope}
	if t.ttl > 0 {
		entry.expires = t.now().Add(t.ttl)
	}
	t.entries[userID] = entry

	switch {
	case !had:
		return []Scope{scope}
	case prev.scope != scope:
		return []Scope{prev.scope, scope}
	case prev.name != name:
		return []Scope{scope}
	default:
		return nil
	}
}

// Clear removes every entry of userID and returns the affected scopes.
func (t *Typing) Clear(userID string) []Scope {
	return t.Set(userID, "", false, GlobalScope)
}

// Forget removes the entry of userID together with every pair entry aimed at
// userID, and returns the affected scopes. It runs when a session goes away.
func (t *Typing) Forget(userID string) []Scope {
	changed := t.Clear(userID)
	for id, entry := range t.entries {
		if entry.scope.IsGlobal() || entry.scope.Other(id) != userID {
			continue
		}
		delete(t.entries, id)
		if !slices.Contains(changed, entry.scope) {
			changed = append(changed, entry.scope)
		}
	}
	return changed
}

// Expire drops entries whose ttl elapsed before now and returns the affected scopes.
func (t *Typing) Expire(now time.Time) []Scope {
	if t.ttl <= 0 {
		return nil
	}

	var changed []Scope
	seen := make(map[Scope]struct{})
	for id, entry := range t.entries {
		if now.Before(entry.expires) {
			continue
		}
		delete(t.entries, id)
		if _, ok := seen[entry.scope]; !ok {
			seen[entry.scope] = struct{}{}
			changed = append(changed, entry.scope)
		}
	}
	return changed
}

// Snapshot returns user id -> display name for the entries visible in scope.
func (t *Typing) Snapshot(scope Scope) map[string]string {
	out := make(map[string]string)
	for id, entry := range t.entries {
		if entry.scope == scope {
			out[id] = entry.name
		}
	}
	return out
}
