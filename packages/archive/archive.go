// Package archive stores exchanges in a SQLite database so history
// outlives a single process.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
	"github.com/abdul-hamid-achik/httpcraft/packages/persist"
)

// DefaultListLimit is used by List when limit is not positive
const DefaultListLimit = 50

// ErrNotFound is returned by Get for an unknown id
var ErrNotFound = errors.New("exchange not found")

// Entry is one archived exchange with its indexed columns.
type Entry struct {
	Seq        int64
	ID         string
	Method     string
	URL        string
	StatusCode int
	Kind       exchange.Kind
	Duration   time.Duration
	Size       int
	Timestamp  time.Time
	Exchange   *exchange.Exchange
}

// Archive is a SQLite backed exchange store.
type Archive struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration
}

// Open opens or creates the archive at path. The sqlite:// and sqlite:
// prefixes are accepted.
func Open(path string) (*Archive, error) {
	dsn := strings.TrimSpace(path)
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	dsn = strings.TrimPrefix(dsn, "sqlite:")
	if dsn == "" {
		return nil, fmt.Errorf("archive path is empty")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// one connection keeps :memory: databases shared and writes serialized
	db.SetMaxOpenConns(1)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to archive: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Archive{
		db:           db,
		path:         dsn,
		queryTimeout: 30 * time.Second,
	}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS exchanges (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			id           TEXT NOT NULL UNIQUE,
			method       TEXT NOT NULL,
			url          TEXT NOT NULL,
			status_code  INTEGER,
			kind         TEXT,
			duration_ns  INTEGER,
			size         INTEGER,
			timestamp    TEXT NOT NULL,
			document     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_exchanges_url ON exchanges(url);
	`)
	if err != nil {
		return fmt.Errorf("creating exchanges table: %w", err)
	}
	return nil
}

func (a *Archive) Path() string {
	return a.path
}

// Close closes the database connection
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Add stores ex. An exchange without an id is given one.
func (a *Archive) Add(ctx context.Context, ex *exchange.Exchange) error {
	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	doc := persist.EncodeExchange(ex)
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding exchange: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO exchanges (id, method, url, status_code, kind, duration_ns, size, timestamp, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, ex.Request.Method, ex.Request.FullURL(), ex.Response.StatusCode,
		string(ex.Response.Kind()), ex.Response.Elapsed.Nanoseconds(), ex.Response.Body.Len(),
		ex.Timestamp.UTC().Format(time.RFC3339Nano), string(data),
	)
	if err != nil {
		return fmt.Errorf("inserting exchange: %w", err)
	}
	return nil
}

const selectColumns = `SELECT seq, id, method, url, status_code, kind, duration_ns, size, timestamp, document FROM exchanges`

// List returns the most recent entries first.
func (a *Archive) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	rows, err := a.db.QueryContext(ctx, selectColumns+` ORDER BY seq DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search returns entries whose URL contains query, most recent first.
func (a *Archive) Search(ctx context.Context, query string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	rows, err := a.db.QueryContext(ctx, selectColumns+` WHERE url LIKE ? ORDER BY seq DESC LIMIT ?`,
		"%"+query+"%", DefaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("searching exchanges: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Get returns the entry with the given exchange id.
func (a *Archive) Get(ctx context.Context, id string) (*Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	rows, err := a.db.QueryContext(ctx, selectColumns+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &entries[0], nil
}

func (a *Archive) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchanges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting exchanges: %w", err)
	}
	return n, nil
}

// Clear removes all entries.
func (a *Archive) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	if _, err := a.db.ExecContext(ctx, `DELETE FROM exchanges`); err != nil {
		return fmt.Errorf("clearing exchanges: %w", err)
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind, ts, document string
		var durationNs int64
		err := rows.Scan(&e.Seq, &e.ID, &e.Method, &e.URL, &e.StatusCode, &kind,
			&durationNs, &e.Size, &ts, &document)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Kind = exchange.ParseKind(kind)
		e.Duration = time.Duration(durationNs)
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)

		var doc persist.ExchangeDoc
		if err := json.Unmarshal([]byte(document), &doc); err != nil {
			return nil, fmt.Errorf("decoding exchange %s: %w", e.ID, err)
		}
		ex, err := persist.DecodeExchange(doc)
		if err != nil {
			return nil, fmt.Errorf("decoding exchange %s: %w", e.ID, err)
		}
		e.Exchange = ex
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}
