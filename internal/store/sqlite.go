package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/klarity/internal/quote"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS carts (
	id TEXT PRIMARY KEY,
	acts TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS quotes (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	token TEXT,
	date_ns INTEGER NOT NULL,
	body TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quotes_token ON quotes(token);
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	body TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	expires_ns INTEGER NOT NULL
);`

// SQLStore persists to a SQLite file. Nested values are stored as JSON text.
type SQLStore struct {
	db    *sql.DB
	links quote.LinkIssuer
	path  string
}

// NewSQLStore opens (or creates) the database at path and applies the schema.
func NewSQLStore(path string, links quote.LinkIssuer) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store: sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	// one connection keeps ":memory:" databases coherent and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to apply schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("sqlite_store_opened")
	return &SQLStore{db: db, links: links, path: path}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) GetCart(ctx context.Context, id string) (quote.Cart, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT acts FROM carts WHERE id = ?`, id).Scan(&raw)
	if err != nil {
		return quote.Cart{}, notFound(err)
	}
	cart := quote.Cart{ID: id}
	if err := json.Unmarshal([]byte(raw), &cart.Acts); err != nil {
		return quote.Cart{}, fmt.Errorf("store: decode cart %s: %w", id, err)
	}
	return cart, nil
}

func (s *SQLStore) PutCart(ctx context.Context, cart quote.Cart) error {
	if strings.TrimSpace(cart.ID) == "" {
		return ErrMissingID
	}
	raw, err := json.Marshal(cart.Acts)
	if err != nil {
		return fmt.Errorf("store: encode cart %s: %w", cart.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO carts(id, acts) VALUES(?, ?)
		 ON CONFLICT(id) DO UPDATE SET acts = excluded.acts`,
		cart.ID, string(raw))
	if err != nil {
		return fmt.Errorf("store: put cart %s: %w", cart.ID, err)
	}
	return nil
}

func (s *SQLStore) PutQuote(ctx context.Context, q quote.Quote) (quote.Quote, error) {
	if strings.TrimSpace(q.ID) == "" {
		return quote.Quote{}, ErrMissingID
	}
	q, _ = normalize(s.links, q)
	if err := s.writeQuote(ctx, q); err != nil {
		return quote.Quote{}, err
	}
	return q, nil
}

func (s *SQLStore) writeQuote(ctx context.Context, q quote.Quote) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("store: encode quote %s: %w", q.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quotes(id, token, date_ns, body) VALUES(?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET token = excluded.token, date_ns = excluded.date_ns, body = excluded.body`,
		q.ID, q.MagicLinkToken, unixNano(q.Date), string(raw))
	if err != nil {
		return fmt.Errorf("store: put quote %s: %w", q.ID, err)
	}
	return nil
}

func (s *SQLStore) GetQuote(ctx context.Context, id string) (quote.Quote, error) {
	return s.queryQuote(ctx, `SELECT body FROM quotes WHERE id = ?`, id)
}

func (s *SQLStore) QuoteByToken(ctx context.Context, token string) (quote.Quote, error) {
	if token == "" {
		return quote.Quote{}, ErrNotFound
	}
	return s.queryQuote(ctx, `SELECT body FROM quotes WHERE token = ?`, token)
}

func (s *SQLStore) queryQuote(ctx context.Context, query string, arg string) (quote.Quote, error) {
	var raw string
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&raw); err != nil {
		return quote.Quote{}, notFound(err)
	}
	return s.decodeQuote(ctx, raw)
}

// decodeQuote upgrades rows written without link fields and persists the result.
func (s *SQLStore) decodeQuote(ctx context.Context, raw string) (quote.Quote, error) {
	var q quote.Quote
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return quote.Quote{}, fmt.Errorf("store: decode quote: %w", err)
	}
	q, changed := normalize(s.links, q)
	if changed {
		if err := s.writeQuote(ctx, q); err != nil {
			return quote.Quote{}, err
		}
	}
	return q, nil
}

func (s *SQLStore) ListQuotes(ctx context.Context) ([]quote.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM quotes ORDER BY date_ns DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list quotes: %w", err)
	}
	var bodies []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: list quotes: %w", err)
		}
		bodies = append(bodies, raw)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("store: list quotes: %w", err)
	}
	rows.Close()

	// decoding may write back, so the cursor is closed first
	out := make([]quote.Quote, 0, len(bodies))
	for _, raw := range bodies {
		q, err := s.decodeQuote(ctx, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *SQLStore) PutUser(ctx context.Context, u quote.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrMissingID
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("store: encode user %s: %w", u.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users(id, body) VALUES(?, ?)
		 ON CONFLICT(id) DO UPDATE SET body = excluded.body`,
		u.ID, string(raw))
	if err != nil {
		return fmt.Errorf("store: put user %s: %w", u.ID, err)
	}
	return nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (quote.User, error) {
	var raw string
	if err := s.db.QueryRowContext(ctx, `SELECT body FROM users WHERE id = ?`, id).Scan(&raw); err != nil {
		return quote.User{}, notFound(err)
	}
	var u quote.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return quote.User{}, fmt.Errorf("store: decode user %s: %w", id, err)
	}
	return u, nil
}

func (s *SQLStore) PutSession(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.Token) == "" {
		return ErrMissingID
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("store: encode session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions(token, body, expires_ns) VALUES(?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET body = excluded.body, expires_ns = excluded.expires_ns`,
		sess.Token, string(raw), unixNano(sess.ExpiresAt))
	if err != nil {
		return fmt.Errorf("store: put session: %w", err)
	}
	return nil
}

func (s *SQLStore) GetSession(ctx context.Context, token string) (Session, error) {
	var raw string
	if err := s.db.QueryRowContext(ctx, `SELECT body FROM sessions WHERE token = ?`, token).Scan(&raw); err != nil {
		return Session{}, notFound(err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("store: decode session: %w", err)
	}
	return sess, nil
}

func (s *SQLStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("store: query failed: %w", err)
}

// unixNano maps the zero time to 0 instead of an out of range value.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
