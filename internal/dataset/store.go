// Package dataset persists fine-tuning records in SQLite.
package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned for unknown record ids.
var ErrNotFound = errors.New("record not found")

// Record is one question with its search context and model answer.
type Record struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	CFRSearchTerms   string    `json:"cfr_search_terms"`
	FDASearchTerms   string    `json:"fda_search_terms"`
	CFRSearchResults string    `json:"cfr_search_results"`
	FDASearchResults string    `json:"fda_search_results"`
	LLMResponse      string    `json:"llm_response"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Patch lists fields to change. Nil pointers leave the stored value alone.
type Patch struct {
	Question         *string
	CFRSearchTerms   *string
	FDASearchTerms   *string
	CFRSearchResults *string
	FDASearchResults *string
	LLMResponse      *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Question == nil && p.CFRSearchTerms == nil && p.FDASearchTerms == nil &&
		p.CFRSearchResults == nil && p.FDASearchResults == nil && p.LLMResponse == nil
}

// Store handles record persistence.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, now: time.Now}
	if err := s.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL DEFAULT '',
		cfr_search_terms TEXT NOT NULL DEFAULT '',
		fda_search_terms TEXT NOT NULL DEFAULT '',
		cfr_search_results TEXT NOT NULL DEFAULT '',
		fda_search_results TEXT NOT NULL DEFAULT '',
		llm_response TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at);
	`)
	return err
}

// NewID generates a new UUIDv7 so ids sort by creation time.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Create inserts an empty record.
func (s *Store) Create(ctx context.Context) (Record, error) {
	now := s.now().UTC()
	r := Record{ID: NewID(), CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, created_at, updated_at) VALUES (?, ?, ?)
	`, r.ID, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	return r, nil
}

const selectColumns = `id, question, cfr_search_terms, fda_search_terms,
	cfr_search_results, fda_search_results, llm_response, created_at, updated_at`

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// List returns every record in creation order.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM records ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Update applies p to the record with id and returns the stored result.
func (s *Store) Update(ctx context.Context, id string, p Patch) (Record, error) {
	if p.Empty() {
		return s.Get(ctx, id)
	}
	var sets []string
	var args []any
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("question", p.Question)
	add("cfr_search_terms", p.CFRSearchTerms)
	add("fda_search_terms", p.FDASearchTerms)
	add("cfr_search_results", p.CFRSearchResults)
	add("fda_search_results", p.FDASearchResults)
	add("llm_response", p.LLMResponse)
	sets = append(sets, "updated_at = ?")
	args = append(args, s.now().UTC().Format(time.RFC3339Nano), id)

	res, err := s.db.ExecContext(ctx, `UPDATE records SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return Record{}, fmt.Errorf("update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Get(ctx, id)
}

// Delete removes the record with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var r Record
	var created, updated string
	err := sc.Scan(&r.ID, &r.Question, &r.CFRSearchTerms, &r.FDASearchTerms,
		&r.CFRSearchResults, &r.FDASearchResults, &r.LLMResponse, &created, &updated)
	if err != nil {
		return Record{}, err
	}
	r.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return Record{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return r, nil
}
