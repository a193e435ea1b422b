package chat

import (
	"fmt"
	"testing"

	"chatsync/internal/app/user"
)

func presenceSession(id, name string) *Session {
	s := &Session{id: id, send: make(chan []byte, 1)}
	s.user = user.User{ID: id, Username: name}
	return s
}

func userIDs(users []user.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestPresenceKeepsJoinOrder(t *testing.T) {
	p := NewPresence()
	for _, id := range []string{"a", "b", "c"} {
		if !p.Add(presenceSession(id, "same-name")) {
			t.Fatalf("add %s failed", id)
		}
	}

	if got := fmt.Sprint(userIDs(p.List())); got != "[a b c]" {
		t.Fatalf("list = %s, want [a b c]", got)
	}

	if !p.Remove("b") {
		t.Fatal("remove b failed")
	}
	if got := fmt.Sprint(userIDs(p.List())); got != "[a c]" {
		t.Fatalf("list after remove = %s, want [a c]", got)
	}

	if s, ok := p.Find("c"); !ok || s.ID() != "c" {
		t.Fatalf("find c = %v, %v", s, ok)
	}
}

func TestPresenceRejectsDuplicatesAndIgnoresRepeatRemove(t *testing.T) {
	p := NewPresence()
	p.Add(presenceSession("a", "alice"))

	if p.Add(presenceSession("a", "alice again")) {
		t.Fatal("duplicate id accepted")
	}
	if p.Len() != 1 {
		t.Fatalf("len = %d, want 1", p.Len())
	}

	if !p.Remove("a") {
		t.Fatal("first remove failed")
	}
	if p.Remove("a") {
		t.Fatal("second remove reported a change")
	}
	if _, ok := p.Find("a"); ok {
		t.Fatal("removed session still found")
	}
}

func TestPresenceRandomJoinLeave(t *testing.T) {
	p := NewPresence()
	online := map[string]bool{}

	ops := []struct {
		join bool
		id   string
	}{
		{true, "a"}, {true, "b"}, {false, "a"}, {true, "c"}, {true, "a"},
		{false, "c"}, {false, "c"}, {true, "d"}, {false, "b"}, {true, "b"},
	}

	for _, op := range ops {
		if op.join {
			p.Add(presenceSession(op.id, op.id))
			online[op.id] = true
		} else {
			p.Remove(op.id)
			delete(online, op.id)
		}

		seen := map[string]bool{}
		for _, u := range p.List() {
			if seen[u.ID] {
				t.Fatalf("duplicate %s in %v", u.ID, userIDs(p.List()))
			}
			if !online[u.ID] {
				t.Fatalf("%s listed after leaving", u.ID)
			}
			seen[u.ID] = true
		}
		if len(seen) != len(online) {
			t.Fatalf("listed %d users, want %d", len(seen), len(online))
		}
	}

	if got := fmt.Sprint(userIDs(p.List())); got != "[a d b]" {
		t.Fatalf("final order = %s, want [a d b]", got)
	}
}
