package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatsync/internal/app/db"
)

const sqliteColumns = `id, sender_id, sender_name, body, is_file, file_name, file_data, file_key,
	mime_type, file_size, is_private, recipient_id, is_system, created_at`

// SQLite persists messages in a SQLite database opened through db.OpenSQLite.
type SQLite struct {
	sqlDB *sql.DB
}

// OpenSQLite opens the database at path, applies migrations and returns the store.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	sqlDB, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	return &SQLite{sqlDB: sqlDB}, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func (s *SQLite) Append(ctx context.Context, m Message) (Message, error) {
	if err := Validate(m); err != nil {
		return Message{}, err
	}

	m.CreatedAt = now()
	m.ReadBy = nil

	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO messages (
		   sender_id, sender_name, body, is_file, file_name, file_data, file_key,
		   mime_type, file_size, is_private, recipient_id, is_system, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.SenderID, m.Sender, m.Body, m.IsFile, m.FileName, m.FileData, m.FileKey,
		m.MimeType, m.FileSize, m.IsPrivate, m.RecipientID, m.System, toMillis(m.CreatedAt),
	)
	if err != nil {
		return Message{}, classify("insert message", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Message{}, classify("read message id", err)
	}
	m.ID = id

	return m, nil
}

func (s *SQLite) Page(ctx context.Context, q PageQuery) ([]Message, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Limit == 0 {
		return []Message{}, nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin page", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM (
		   SELECT `+sqliteColumns+` FROM messages
		   WHERE is_private = 0 OR (?1 <> '' AND (sender_id = ?1 OR recipient_id = ?1))
		   ORDER BY id DESC
		   LIMIT ?2 OFFSET ?3
		 ) ORDER BY id ASC`,
		q.ViewerID, q.Limit, q.Skip,
	)
	if err != nil {
		return nil, classify("query page", err)
	}

	page, err := scanSQLiteMessages(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachReaders(ctx, tx, page); err != nil {
		return nil, err
	}

	return page, tx.Commit()
}

func (s *SQLite) Get(ctx context.Context, id int64) (Message, error) {
	return s.get(ctx, s.sqlDB, id)
}

func (s *SQLite) MarkRead(ctx context.Context, id int64, readerID string) (Message, bool, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, false, classify("begin mark read", err)
	}
	defer func() { _ = tx.Rollback() }()

	m, err := s.get(ctx, tx, id)
	if err != nil {
		return Message{}, false, err
	}
	if readerID == "" || readerID == m.SenderID {
		return m, false, nil
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, reader_id, read_at) VALUES (?, ?, ?)
		 ON CONFLICT (message_id, reader_id) DO NOTHING`,
		id, readerID, toMillis(time.Now()),
	)
	if err != nil {
		return Message{}, false, classify("insert read", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return Message{}, false, classify("read affected rows", err)
	}
	if affected > 0 {
		m.ReadBy = append(m.ReadBy, readerID)
	}

	if err := tx.Commit(); err != nil {
		return Message{}, false, classify("commit mark read", err)
	}

	return m, affected > 0, nil
}

// Close closes the SQLite handle.
func (s *SQLite) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) get(ctx context.Context, q sqlQuerier, id int64) (Message, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM messages WHERE id = ?`, id)

	m, err := scanSQLiteMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, classify("get message", err)
	}

	msgs := []Message{m}
	if err := s.attachReaders(ctx, q, msgs); err != nil {
		return Message{}, err
	}
	return msgs[0], nil
}

// attachReaders fills ReadBy for msgs in the order reads were recorded.
func (s *SQLite) attachReaders(ctx context.Context, q sqlQuerier, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	byID := make(map[int64]int, len(msgs))
	args := make([]any, 0, len(msgs))
	for i, m := range msgs {
		byID[m.ID] = i
		args = append(args, m.ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(msgs)), ",")
	rows, err := q.QueryContext(ctx,
		`SELECT message_id, reader_id FROM message_reads
		 WHERE message_id IN (`+placeholders+`)
		 ORDER BY message_id, rowid`,
		args...,
	)
	if err != nil {
		return classify("query readers", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			messageID int64
			readerID  string
		)
		if err := rows.Scan(&messageID, &readerID); err != nil {
			return fmt.Errorf("scan reader: %w", err)
		}
		if i, ok := byID[messageID]; ok {
			msgs[i].ReadBy = append(msgs[i].ReadBy, readerID)
		}
	}
	if err := rows.Err(); err != nil {
		return classify("iterate readers", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMessage(row rowScanner) (Message, error) {
	var (
		m         Message
		createdAt int64
	)
	err := row.Scan(
		&m.ID, &m.SenderID, &m.Sender, &m.Body, &m.IsFile, &m.FileName, &m.FileData, &m.FileKey,
		&m.MimeType, &m.FileSize, &m.IsPrivate, &m.RecipientID, &m.System, &createdAt,
	)
	if err != nil {
		return Message{}, err
	}
	m.CreatedAt = fromMillis(createdAt)
	return m, nil
}

func scanSQLiteMessages(rows *sql.Rows) ([]Message, error) {
	defer rows.Close()

	msgs := make([]Message, 0)
	for rows.Next() {
		m, err := scanSQLiteMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate messages", err)
	}
	return msgs, nil
}

// classify wraps err with context and marks retryable backend failures as transient.
func classify(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	if db.IsTransient(err) {
		return &TransientError{Err: wrapped}
	}
	return wrapped
}

var _ Store = (*SQLite)(nil)
