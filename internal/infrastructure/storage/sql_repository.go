package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ProductScanner/internal/config"
	"ProductScanner/internal/domain"
	"ProductScanner/internal/ports"
)

const (
	sessionsTable = "sessions"
	itemsTable    = "session_items"
)

var sessionColumns = []string{
	"id", "name", "source_url", "hostname", "favicon", "last_duration",
	"column_names", "created_at", "updated_at",
}

var itemColumns = []string{
	"id", "session_id", "sort_index", "title", "url", "description",
	"short_description", "long_description", "image", "price", "currency",
	"brand", "rating", "review_count", "sku", "ean", "stock", "created_at",
}

// SQLRepository persists sessions into Postgres, SQLite or MySQL.
type SQLRepository struct {
	db      *sql.DB
	dialect string
	builder sq.StatementBuilderType
}

var (
	_ ports.SessionRepository = (*SQLRepository)(nil)
	_ ports.SchemaInitializer = (*SQLRepository)(nil)
)

// NewSQLRepository wires a sql.DB; dialect selects placeholders and DDL.
func NewSQLRepository(db *sql.DB, dialect string) *SQLRepository {
	var placeholders sq.PlaceholderFormat = sq.Question
	if dialect == config.DriverPostgres {
		placeholders = sq.Dollar
	}
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholders),
	}
}

// Init creates the sessions and session_items tables and their indexes.
func (r *SQLRepository) Init(ctx context.Context) error {
	for _, stmt := range schema(r.dialect) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Create inserts the session and its items in one transaction.
func (r *SQLRepository) Create(ctx context.Context, session domain.Session) (domain.Session, error) {
	columns, err := encodeColumns(session.Columns)
	if err != nil {
		return domain.Session{}, err
	}

	err = r.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := r.builder.Insert(sessionsTable).
			Columns(sessionColumns...).
			Values(session.ID, session.Name, nullable(session.SourceURL), nullable(session.Hostname),
				nullable(session.Favicon), nullable(session.LastDuration), columns,
				session.CreatedAt.UTC(), session.UpdatedAt.UTC()).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return r.insertItems(ctx, tx, session.ID, session.Items)
	})
	if err != nil {
		return domain.Session{}, err
	}
	return withItems(session), nil
}

// Get loads the session row and its items in position order.
func (r *SQLRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	query, args, err := r.builder.Select(sessionColumns...).
		From(sessionsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Session{}, fmt.Errorf("build select session: %w", err)
	}

	session, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, err
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	session.Items = items
	return session, nil
}

// Update rewrites session metadata and replaces its items.
func (r *SQLRepository) Update(ctx context.Context, session domain.Session) (domain.Session, error) {
	columns, err := encodeColumns(session.Columns)
	if err != nil {
		return domain.Session{}, err
	}

	err = r.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := r.builder.Update(sessionsTable).
			SetMap(map[string]any{
				"name":          session.Name,
				"source_url":    nullable(session.SourceURL),
				"hostname":      nullable(session.Hostname),
				"favicon":       nullable(session.Favicon),
				"last_duration": nullable(session.LastDuration),
				"column_names":  columns,
				"updated_at":    session.UpdatedAt.UTC(),
			}).
			Where(sq.Eq{"id": session.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update session: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return domain.ErrSessionNotFound
		}

		if err := r.deleteItems(ctx, tx, session.ID); err != nil {
			return err
		}
		return r.insertItems(ctx, tx, session.ID, session.Items)
	})
	if err != nil {
		return domain.Session{}, err
	}
	return withItems(session), nil
}

// Delete removes the session and its items; false means nothing matched.
func (r *SQLRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.deleteItems(ctx, tx, id); err != nil {
			return err
		}

		query, args, err := r.builder.Delete(sessionsTable).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete session: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		deleted = affected > 0
		return nil
	})
	return deleted, err
}

// List returns session rows without items, most recently updated first.
func (r *SQLRepository) List(ctx context.Context) ([]domain.Session, error) {
	query, args, err := r.builder.Select(sessionColumns...).
		From(sessionsTable).
		OrderBy("updated_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		session.Items = []domain.Item{}
		sessions = append(sessions, session)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return sessions, nil
}

func (r *SQLRepository) insertItems(ctx context.Context, tx *sql.Tx, sessionID string, items []domain.Item) error {
	for i, item := range items {
		query, args, err := r.builder.Insert(itemsTable).
			Columns(itemColumns...).
			Values(item.ID, sessionID, i, item.Title, nullable(item.URL), nullable(item.Description),
				nullable(item.ShortDescription), nullable(item.LongDescription), nullable(item.Image),
				nullable(item.Price), nullable(item.Currency), nullable(item.Brand), nullable(item.Rating),
				nullable(item.ReviewCount), nullable(item.SKU), nullable(item.EAN), nullable(item.Stock),
				item.CreatedAt.UTC()).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert item: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert item %s: %w", item.ID, err)
		}
	}
	return nil
}

func (r *SQLRepository) deleteItems(ctx context.Context, tx *sql.Tx, sessionID string) error {
	query, args, err := r.builder.Delete(itemsTable).Where(sq.Eq{"session_id": sessionID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	return nil
}

func (r *SQLRepository) loadItems(ctx context.Context, sessionID string) ([]domain.Item, error) {
	query, args, err := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("sort_index ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select items: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	items := make([]domain.Item, 0)
	for rows.Next() {
		var (
			item     domain.Item
			owner    string
			position int
			created  timestamp
			text     [13]sql.NullString
		)
		err := rows.Scan(&item.ID, &owner, &position, &item.Title,
			&text[0], &text[1], &text[2], &text[3], &text[4], &text[5], &text[6],
			&text[7], &text[8], &text[9], &text[10], &text[11], &text[12], &created)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.URL = text[0].String
		item.Description = text[1].String
		item.ShortDescription = text[2].String
		item.LongDescription = text[3].String
		item.Image = text[4].String
		item.Price = text[5].String
		item.Currency = text[6].String
		item.Brand = text[7].String
		item.Rating = text[8].String
		item.ReviewCount = text[9].String
		item.SKU = text[10].String
		item.EAN = text[11].String
		item.Stock = text[12].String
		item.CreatedAt = created.Time
		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return items, nil
}

func (r *SQLRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var session domain.Session
	var source, host, favicon, duration, columns sql.NullString
	var created, updated timestamp
	err := row.Scan(&session.ID, &session.Name, &source, &host, &favicon, &duration,
		&columns, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, err
		}
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}

	session.SourceURL = source.String
	session.Hostname = host.String
	session.Favicon = favicon.String
	session.LastDuration = duration.String
	session.CreatedAt = created.Time
	session.UpdatedAt = updated.Time
	if columns.String != "" {
		if err := json.Unmarshal([]byte(columns.String), &session.Columns); err != nil {
			return domain.Session{}, fmt.Errorf("decode columns: %w", err)
		}
	}
	return session, nil
}

func encodeColumns(columns map[string]string) (sql.NullString, error) {
	if len(columns) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(columns)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode columns: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// timestamp scans TIMESTAMP columns from drivers that return either
// time.Time or text.
type timestamp struct {
	Time time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *timestamp) parse(value string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", value)
}
