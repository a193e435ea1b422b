package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatsync/internal/app/db"
)

const pgColumns = `id, sender_id, sender_name, body, is_file, file_name, file_data, file_key,
	mime_type, file_size, is_private, recipient_id, is_system, created_at`

// Postgres persists messages in PostgreSQL through a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, applies migrations and returns the store.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Append(ctx context.Context, m Message) (Message, error) {
	if err := Validate(m); err != nil {
		return Message{}, err
	}

	m.CreatedAt = now()
	m.ReadBy = nil

	err := s.pool.QueryRow(ctx,
		`INSERT INTO messages (
		   sender_id, sender_name, body, is_file, file_name, file_data, file_key,
		   mime_type, file_size, is_private, recipient_id, is_system, created_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		m.SenderID, m.Sender, m.Body, m.IsFile, m.FileName, m.FileData, m.FileKey,
		m.MimeType, m.FileSize, m.IsPrivate, m.RecipientID, m.System, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return Message{}, classify("insert message", err)
	}

	return m, nil
}

func (s *Postgres) Page(ctx context.Context, q PageQuery) ([]Message, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Limit == 0 {
		return []Message{}, nil
	}

	var page []Message
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+pgColumns+` FROM (
			   SELECT `+pgColumns+` FROM messages
			   WHERE NOT is_private OR ($1 <> '' AND (sender_id = $1 OR recipient_id = $1))
			   ORDER BY id DESC
			   LIMIT $2 OFFSET $3
			 ) AS recent ORDER BY id ASC`,
			q.ViewerID, q.Limit, q.Skip,
		)
		if err != nil {
			return classify("query page", err)
		}

		page, err = pgx.CollectRows(rows, scanPgMessage)
		if err != nil {
			return classify("scan page", err)
		}

		return attachPgReaders(ctx, tx, page)
	})
	if err != nil {
		return nil, err
	}

	if page == nil {
		page = []Message{}
	}
	return page, nil
}

func (s *Postgres) Get(ctx context.Context, id int64) (Message, error) {
	return getPg(ctx, s.pool, id)
}

func (s *Postgres) MarkRead(ctx context.Context, id int64, readerID string) (Message, bool, error) {
	var (
		m       Message
		changed bool
	)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		m, err = getPg(ctx, tx, id)
		if err != nil {
			return err
		}
		if readerID == "" || readerID == m.SenderID {
			return nil
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO message_reads (message_id, reader_id) VALUES ($1, $2)
			 ON CONFLICT (message_id, reader_id) DO NOTHING`,
			id, readerID,
		)
		if err != nil {
			return classify("insert read", err)
		}

		if tag.RowsAffected() > 0 {
			changed = true
			m.ReadBy = append(m.ReadBy, readerID)
		}
		return nil
	})
	if err != nil {
		return Message{}, false, err
	}

	return m, changed, nil
}

// Close releases the pool.
func (s *Postgres) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getPg(ctx context.Context, q pgQuerier, id int64) (Message, error) {
	rows, err := q.Query(ctx, `SELECT `+pgColumns+` FROM messages WHERE id = $1`, id)
	if err != nil {
		return Message{}, classify("get message", err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanPgMessage)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, classify("get message", err)
	}

	msgs := []Message{m}
	if err := attachPgReaders(ctx, q, msgs); err != nil {
		return Message{}, err
	}
	return msgs[0], nil
}

func attachPgReaders(ctx context.Context, q pgQuerier, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	byID := make(map[int64]int, len(msgs))
	ids := make([]int64, 0, len(msgs))
	for i, m := range msgs {
		byID[m.ID] = i
		ids = append(ids, m.ID)
	}

	rows, err := q.Query(ctx,
		`SELECT message_id, reader_id FROM message_reads
		 WHERE message_id = ANY($1)
		 ORDER BY message_id, read_at, reader_id`,
		ids,
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

func scanPgMessage(row pgx.CollectableRow) (Message, error) {
	var m Message
	err := row.Scan(
		&m.ID, &m.SenderID, &m.Sender, &m.Body, &m.IsFile, &m.FileName, &m.FileData, &m.FileKey,
		&m.MimeType, &m.FileSize, &m.IsPrivate, &m.RecipientID, &m.System, &m.CreatedAt,
	)
	m.CreatedAt = m.CreatedAt.UTC()
	return m, err
}

var _ Store = (*Postgres)(nil)
