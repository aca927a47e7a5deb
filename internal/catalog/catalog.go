// Package catalog keeps converted models in a SQLite database.
//
// Every entry stores the model as fixed-layout MPS text, keyed by a
// time-ordered UUID, along with its provenance and summary statistics.
// Adding a model whose MPS text is already stored returns the existing
// entry.
package catalog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/bartolsthoorn/gomps/lp"
	"github.com/bartolsthoorn/gomps/mps"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - Added index on models.created_at for listing
const currentSchemaVersion = 1

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("catalog: model not found")

// Entry describes one stored model.
type Entry struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Source     string    `json:"source" yaml:"source"`
	Dialect    string    `json:"dialect" yaml:"dialect"`
	Duplicates string    `json:"duplicates" yaml:"duplicates"`
	Sense      string    `json:"sense" yaml:"sense"`
	Stats      lp.Stats  `json:"stats" yaml:"stats"`
	Digest     string    `json:"digest" yaml:"digest"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// Catalog is a handle on an open catalog database.
type Catalog struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the catalog at path and applies pragmas and
// migrations. It is safe to call on an existing catalog.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "connect to catalog %s", path)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply pragmas")
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}

	return &Catalog{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "execute %q", pragma)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.Wrap(err, "execute schema")
	}
	return runMigrations(db)
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "get user_version")
	}

	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_models_created ON models(created_at, id)`); err != nil {
			return errors.Wrap(err, "migrate to v1")
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return errors.Wrap(err, "set user_version")
	}
	return nil
}

// Add stores m and returns its entry. The model is written in the fixed
// layout; an identical MPS text already in the catalog yields the existing
// entry instead of a new one.
func (c *Catalog) Add(ctx context.Context, m *lp.Model, opts ...mps.Option) (Entry, error) {
	var buf bytes.Buffer
	if err := mps.Write(&buf, m, opts...); err != nil {
		return Entry{}, errors.Wrap(err, "encode model")
	}
	sum := sha256.Sum256(buf.Bytes())
	digest := hex.EncodeToString(sum[:])

	stats, err := json.Marshal(m.Stats())
	if err != nil {
		return Entry{}, errors.Wrap(err, "encode stats")
	}

	id := uuid.Must(uuid.NewV7()).String()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO models
		(id, name, source, dialect, duplicates, sense, stats, digest, mps, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO NOTHING
	`,
		id,
		m.Name,
		m.Provenance.Source,
		m.Provenance.Dialect,
		m.Provenance.Duplicates.String(),
		m.Sense.String(),
		string(stats),
		digest,
		buf.Bytes(),
		c.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return Entry{}, errors.Wrap(err, "insert model")
	}

	return c.getBy(ctx, "digest", digest)
}

// Get returns the entry with the given id.
func (c *Catalog) Get(ctx context.Context, id string) (Entry, error) {
	return c.getBy(ctx, "id", id)
}

// List returns all entries, oldest first.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, source, dialect, duplicates, sense, stats, digest, created_at
		FROM models
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "query models")
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate models")
	}
	return entries, nil
}

// Model reads back the stored model with the given id.
func (c *Catalog) Model(ctx context.Context, id string, opts ...mps.Option) (*lp.Model, error) {
	data, err := c.text(ctx, id)
	if err != nil {
		return nil, err
	}
	opts = append([]mps.Option{mps.WithSource("catalog:" + id)}, opts...)
	m, err := mps.Read(bytes.NewReader(data), mps.Fixed, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "decode model %s", id)
	}
	return m, nil
}

// Export writes the stored MPS text of id to path.
func (c *Catalog) Export(ctx context.Context, id, path string) error {
	data, err := c.text(ctx, id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "export model %s", id)
	}
	return nil
}

func (c *Catalog) text(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `SELECT mps FROM models WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query model %s", id)
	}
	return data, nil
}

// getBy returns the single entry whose column equals value. column is
// always a constant supplied by this package.
func (c *Catalog) getBy(ctx context.Context, column, value string) (Entry, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, name, source, dialect, duplicates, sense, stats, digest, created_at
		FROM models
		WHERE `+column+` = ?
	`, value)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, errors.Wrapf(ErrNotFound, "%s %s", column, value)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var stats, created string
	err := s.Scan(&e.ID, &e.Name, &e.Source, &e.Dialect, &e.Duplicates, &e.Sense, &stats, &e.Digest, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, errors.Wrap(err, "scan model")
	}
	if err := json.Unmarshal([]byte(stats), &e.Stats); err != nil {
		return Entry{}, errors.Wrapf(err, "decode stats of %s", e.ID)
	}
	if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Entry{}, errors.Wrapf(err, "decode created_at of %s", e.ID)
	}
	return e, nil
}
