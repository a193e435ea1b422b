package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// backends returns every store implementation available in this environment.
func backends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()

	out := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"sqlite": openTempSQLite,
	}

	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		out["postgres"] = func(t *testing.T) Store {
			t.Helper()
			s, err := OpenPostgres(context.Background(), dsn)
			if err != nil {
				t.Fatalf("open postgres: %v", err)
			}
			if _, err := s.pool.Exec(context.Background(), `TRUNCATE messages RESTART IDENTITY CASCADE`); err != nil {
				t.Fatalf("truncate: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		}
	}
	return out
}

func openTempSQLite(t *testing.T) Store {
	t.Helper()

	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s Store, n int) []Message {
	t.Helper()

	out := make([]Message, 0, n)
	for i := 1; i <= n; i++ {
		m, err := s.Append(context.Background(), Message{SenderID: "a", Sender: "alice", Body: fmt.Sprintf("m%d", i)})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		out = append(out, m)
	}
	return out
}

func ids(msgs []Message) []int64 {
	out := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestStoreContract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("append assigns increasing ids", func(t *testing.T) {
				msgs := seed(t, open(t), 3)
				for i := 1; i < len(msgs); i++ {
					if msgs[i].ID <= msgs[i-1].ID {
						t.Fatalf("ids not increasing: %v", ids(msgs))
					}
				}
				if msgs[0].CreatedAt.IsZero() {
					t.Fatal("expected createdAt to be set")
				}
			})

			t.Run("page returns most recent oldest-first", func(t *testing.T) {
				s := open(t)
				msgs := seed(t, s, 5)

				page, err := s.Page(context.Background(), PageQuery{Skip: 0, Limit: 2})
				if err != nil {
					t.Fatalf("page: %v", err)
				}
				if got, want := ids(page), ids(msgs[3:]); fmt.Sprint(got) != fmt.Sprint(want) {
					t.Fatalf("page ids = %v, want %v", got, want)
				}
			})

			t.Run("pages partition history", func(t *testing.T) {
				s := open(t)
				seed(t, s, 60)

				var concat []int64
				for skip := 40; skip >= 0; skip -= 20 {
					page, err := s.Page(context.Background(), PageQuery{Skip: skip, Limit: 20})
					if err != nil {
						t.Fatalf("page skip=%d: %v", skip, err)
					}
					concat = append(concat, ids(page)...)
				}

				all, err := s.Page(context.Background(), PageQuery{Skip: 0, Limit: 60})
				if err != nil {
					t.Fatalf("page all: %v", err)
				}
				if fmt.Sprint(concat) != fmt.Sprint(ids(all)) {
					t.Fatalf("partition mismatch:\n got %v\nwant %v", concat, ids(all))
				}
			})

			t.Run("skip beyond end is empty", func(t *testing.T) {
				s := open(t)
				seed(t, s, 3)

				page, err := s.Page(context.Background(), PageQuery{Skip: 10, Limit: 20})
				if err != nil {
					t.Fatalf("page: %v", err)
				}
				if page == nil || len(page) != 0 {
					t.Fatalf("page = %v, want empty non-nil", page)
				}
			})

			t.Run("negative page rejected", func(t *testing.T) {
				_, err := open(t).Page(context.Background(), PageQuery{Skip: -1, Limit: 20})
				if !errors.Is(err, ErrInvalidPage) {
					t.Fatalf("err = %v, want ErrInvalidPage", err)
				}
			})

			t.Run("private messages hidden from others", func(t *testing.T) {
				s := open(t)
				ctx := context.Background()

				if _, err := s.Append(ctx, Message{SenderID: "a", Sender: "alice", Body: "hi"}); err != nil {
					t.Fatalf("append: %v", err)
				}
				if _, err := s.Append(ctx, Message{SenderID: "b", Sender: "bob", Body: "secret", IsPrivate: true, RecipientID: "a"}); err != nil {
					t.Fatalf("append private: %v", err)
				}

				for viewer, want := range map[string]int{"": 1, "c": 1, "a": 2, "b": 2} {
					page, err := s.Page(ctx, PageQuery{Limit: 10, ViewerID: viewer})
					if err != nil {
						t.Fatalf("page: %v", err)
					}
					if len(page) != want {
						t.Fatalf("viewer %q saw %d messages, want %d", viewer, len(page), want)
					}
				}
			})

			t.Run("invalid messages rejected", func(t *testing.T) {
				s := open(t)
				bad := []Message{
					{SenderID: "a", IsPrivate: true},
					{SenderID: "a", RecipientID: "b"},
					{System: true, IsPrivate: true, RecipientID: "b"},
					{Body: "no sender"},
				}
				for _, m := range bad {
					if _, err := s.Append(context.Background(), m); !errors.Is(err, ErrInvalidMessage) {
						t.Fatalf("append %+v: err = %v, want ErrInvalidMessage", m, err)
					}
				}
			})

			t.Run("mark read is idempotent", func(t *testing.T) {
				s := open(t)
				ctx := context.Background()
				m := seed(t, s, 1)[0]

				got, changed, err := s.MarkRead(ctx, m.ID, "b")
				if err != nil || !changed {
					t.Fatalf("first mark: changed=%v err=%v", changed, err)
				}
				if fmt.Sprint(got.ReadBy) != "[b]" {
					t.Fatalf("readBy = %v, want [b]", got.ReadBy)
				}

				got, changed, err = s.MarkRead(ctx, m.ID, "b")
				if err != nil || changed {
					t.Fatalf("second mark: changed=%v err=%v", changed, err)
				}
				if fmt.Sprint(got.ReadBy) != "[b]" {
					t.Fatalf("readBy after repeat = %v, want [b]", got.ReadBy)
				}

				if _, changed, _ := s.MarkRead(ctx, m.ID, m.SenderID); changed {
					t.Fatal("sender must not be recorded as reader")
				}

				if _, _, err := s.MarkRead(ctx, m.ID+100, "b"); !errors.Is(err, ErrNotFound) {
					t.Fatalf("err = %v, want ErrNotFound", err)
				}

				stored, err := s.Get(ctx, m.ID)
				if err != nil {
					t.Fatalf("get: %v", err)
				}
				if fmt.Sprint(stored.ReadBy) != "[b]" {
					t.Fatalf("stored readBy = %v, want [b]", stored.ReadBy)
				}
			})

			t.Run("page carries readers", func(t *testing.T) {
				s := open(t)
				ctx := context.Background()
				msgs := seed(t, s, 2)

				for _, reader := range []string{"c", "b"} {
					if _, _, err := s.MarkRead(ctx, msgs[1].ID, reader); err != nil {
						t.Fatalf("mark: %v", err)
					}
				}

				page, err := s.Page(ctx, PageQuery{Limit: 2})
				if err != nil {
					t.Fatalf("page: %v", err)
				}
				if len(page[0].ReadBy) != 0 {
					t.Fatalf("first readBy = %v, want empty", page[0].ReadBy)
				}
				if fmt.Sprint(page[1].ReadBy) != "[c b]" {
					t.Fatalf("second readBy = %v, want [c b]", page[1].ReadBy)
				}
			})

			t.Run("get missing", func(t *testing.T) {
				if _, err := open(t).Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
					t.Fatalf("err = %v, want ErrNotFound", err)
				}
			})
		})
	}
}

func TestMemoryConcurrentAppendAndPage(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if _, err := s.Append(ctx, Message{SenderID: "a", Sender: "alice", Body: "x"}); err != nil {
				t.Errorf("append: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			page, err := s.Page(ctx, PageQuery{Limit: 20})
			if err != nil {
				t.Errorf("page: %v", err)
				return
			}
			for j := 1; j < len(page); j++ {
				if page[j].ID != page[j-1].ID+1 {
					t.Errorf("page not contiguous: %v", ids(page))
					return
				}
			}
		}
	}()
	wg.Wait()

	if s.Len() != 200 {
		t.Fatalf("len = %d, want 200", s.Len())
	}
}

func TestForWire(t *testing.T) {
	m := Message{ID: 7, IsFile: true, FileKey: "attachments/x.png", FileData: ""}.ForWire()
	if m.FileData != "/api/files/7" {
		t.Fatalf("fileData = %q, want /api/files/7", m.FileData)
	}
	if m.ReadBy == nil {
		t.Fatal("readBy must not be nil on the wire")
	}

	inline := Message{ID: 8, IsFile: true, FileData: "data:text/plain;base64,aGk="}.ForWire()
	if inline.FileData != "data:text/plain;base64,aGk=" {
		t.Fatalf("inline fileData rewritten: %q", inline.FileData)
	}
}

func TestParticipants(t *testing.T) {
	if p := (Message{SenderID: "a"}).Participants(); fmt.Sprint(p) != "[a]" {
		t.Fatalf("public participants = %v", p)
	}
	if p := (Message{SenderID: "a", IsPrivate: true, RecipientID: "b"}).Participants(); fmt.Sprint(p) != "[a b]" {
		t.Fatalf("private participants = %v", p)
	}
	if p := (Message{System: true}).Participants(); p != nil {
		t.Fatalf("system participants = %v", p)
	}
}
