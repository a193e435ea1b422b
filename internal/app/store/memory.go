package store

import (
	"context"
	"sync"
)

// Memory keeps messages in process. Ids start at 1 and follow append order.
type Memory struct {
	mu       sync.RWMutex
	messages []Message
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Append(ctx context.Context, m Message) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	if err := Validate(m); err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = int64(len(s.messages)) + 1
	m.CreatedAt = now()
	m.ReadBy = nil
	s.messages = append(s.messages, m)

	return m, nil
}

func (s *Memory) Page(ctx context.Context, q PageQuery) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	page := make([]Message, 0, q.Limit)
	skipped := 0
	for i := len(s.messages) - 1; i >= 0 && len(page) < q.Limit; i-- {
		m := s.messages[i]
		if !m.VisibleTo(q.ViewerID) {
			continue
		}
		if skipped < q.Skip {
			skipped++
			continue
		}
		page = append(page, clone(m))
	}

	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}

	return page, nil
}

func (s *Memory) Get(ctx context.Context, id int64) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index(id)
	if !ok {
		return Message{}, ErrNotFound
	}
	return clone(s.messages[idx]), nil
}

func (s *Memory) MarkRead(ctx context.Context, id int64, readerID string) (Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index(id)
	if !ok {
		return Message{}, false, ErrNotFound
	}

	m := &s.messages[idx]
	if readerID == "" || readerID == m.SenderID || m.HasReader(readerID) {
		return clone(*m), false, nil
	}

	m.ReadBy = append(m.ReadBy, readerID)
	return clone(*m), true, nil
}

func (s *Memory) Close() error { return nil }

// Len returns the number of stored messages.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Memory) index(id int64) (int, bool) {
	if id < 1 || id > int64(len(s.messages)) {
		return 0, false
	}
	return int(id - 1), true
}

func clone(m Message) Message {
	if m.ReadBy != nil {
		m.ReadBy = append([]string(nil), m.ReadBy...)
	}
	return m
}

var _ Store = (*Memory)(nil)
