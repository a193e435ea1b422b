package chat

import "chatsync/internal/app/user"

// Presence is the registry of joined sessions in join order.
// It is owned by the hub goroutine and is not safe for concurrent use.
type Presence struct {
	sessions []*Session
	index    map[string]int
}

// NewPresence returns an empty registry.
func NewPresence() *Presence {
	return &Presence{index: make(map[string]int)}
}

// Add appends s. It reports false if a session with the same id is already present.
func (p *Presence) Add(s *Session) bool {
	id := s.ID()
	if _, ok := p.index[id]; ok {
		return false
	}

	p.index[id] = len(p.sessions)
	p.sessions = append(p.sessions, s)
	return true
}

// Remove drops the session with the given id. Removing an absent id is a no-op
// and reports false.
func (p *Presence) Remove(id string) bool {
	idx, ok := p.index[id]
	if !ok {
		return false
	}

	delete(p.index, id)
	copy(p.sessions[idx:], p.sessions[idx+1:])
	p.sessions[len(p.sessions)-1] = nil
	p.sessions = p.sessions[:len(p.sessions)-1]

	for i := idx; i < len(p.sessions); i++ {
		p.index[p.sessions[i].ID()] = i
	}
	return true
}

// Find looks up a session by id.
func (p *Presence) Find(id string) (*Session, bool) {
	idx, ok := p.index[id]
	if !ok {
		return nil, false
	}
	return p.sessions[idx], true
}

// List returns the online users in join order.
func (p *Presence) List() []user.User {
	users := make([]user.User, 0, len(p.sessions))
	for _, s := range p.sessions {
		users = append(users, s.User())
	}
	return users
}

// Sessions returns a copy of the joined sessions in join order.
func (p *Presence) Sessions() []*Session {
	return append([]*Session(nil), p.sessions...)
}

// Len returns the number of joined sessions.
func (p *Presence) Len() int {
	return len(p.sessions)
}
