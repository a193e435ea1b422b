package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyStore fails Append with a transient error a fixed number of times.
type flakyStore struct {
	*Memory
	failures int
	calls    int
	err      error
}

func (f *flakyStore) Append(ctx context.Context, m Message) (Message, error) {
	f.calls++
	if f.calls <= f.failures {
		return Message{}, f.err
	}
	return f.Memory.Append(ctx, m)
}

// slowStore blocks Get until the context ends.
type slowStore struct {
	*Memory
	calls int
}

func (s *slowStore) Get(ctx context.Context, id int64) (Message, error) {
	s.calls++
	<-ctx.Done()
	return Message{}, ctx.Err()
}

var fastPolicy = RetryPolicy{Attempts: 3, Base: time.Millisecond, Timeout: 50 * time.Millisecond}

func TestWithRetryRecoversFromTransient(t *testing.T) {
	flaky := &flakyStore{Memory: NewMemory(), failures: 2, err: &TransientError{Err: errors.New("busy")}}

	m, err := WithRetry(flaky, fastPolicy).Append(context.Background(), Message{SenderID: "a", Body: "hi"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if m.ID != 1 || flaky.calls != 3 {
		t.Fatalf("id=%d calls=%d, want id=1 calls=3", m.ID, flaky.calls)
	}
}

func TestWithRetryGivesUpAsTransient(t *testing.T) {
	flaky := &flakyStore{Memory: NewMemory(), failures: 100, err: &TransientError{Err: errors.New("busy")}}

	_, err := WithRetry(flaky, fastPolicy).Append(context.Background(), Message{SenderID: "a", Body: "hi"})
	if !IsTransient(err) {
		t.Fatalf("err = %v, want transient", err)
	}
	if flaky.calls != 4 {
		t.Fatalf("calls = %d, want 4", flaky.calls)
	}
}

func TestWithRetryDoesNotRetryPermanent(t *testing.T) {
	flaky := &flakyStore{Memory: NewMemory(), failures: 100, err: ErrInvalidMessage}

	_, err := WithRetry(flaky, fastPolicy).Append(context.Background(), Message{SenderID: "a"})
	if !errors.Is(err, ErrInvalidMessage) || IsTransient(err) {
		t.Fatalf("err = %v, want permanent ErrInvalidMessage", err)
	}
	if flaky.calls != 1 {
		t.Fatalf("calls = %d, want 1", flaky.calls)
	}
}

func TestWithRetryBoundsHangingCalls(t *testing.T) {
	slow := &slowStore{Memory: NewMemory()}
	policy := RetryPolicy{Attempts: 1, Base: time.Millisecond, Timeout: 10 * time.Millisecond}

	start := time.Now()
	_, err := WithRetry(slow, policy).Get(context.Background(), 1)
	if !IsTransient(err) {
		t.Fatalf("err = %v, want transient", err)
	}
	if slow.calls != 2 {
		t.Fatalf("calls = %d, want 2", slow.calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("retry took %s", elapsed)
	}
}

func TestRetryPolicyBudget(t *testing.T) {
	p := RetryPolicy{Attempts: 2, Base: 100 * time.Millisecond, Timeout: time.Second}
	if got, want := p.Budget(), 3360*time.Millisecond; got != want {
		t.Fatalf("Budget() = %s, want %s", got, want)
	}

	p = RetryPolicy{Attempts: 3, Timeout: 2 * time.Second}
	if got, want := p.Budget(), 8420*time.Millisecond; got != want {
		t.Fatalf("Budget() with default base = %s, want %s", got, want)
	}

	if got := (RetryPolicy{Attempts: 3, Base: time.Millisecond}).Budget(); got != 0 {
		t.Fatalf("unbounded Budget() = %s, want 0", got)
	}
}

func TestWithTracingPassesThrough(t *testing.T) {
	s := WithTracing(NewMemory(), "memory")
	ctx := context.Background()

	m, err := s.Append(ctx, Message{SenderID: "a", Body: "hi"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Get(ctx, m.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := s.Get(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
