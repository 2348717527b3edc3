// Package catalog keeps a sqlite index of exported takes.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when deleting a take that does not exist.
var ErrNotFound = errors.New("catalog: take not found")

// Take is one exported recording.
type Take struct {
	ID         int64
	Path       string
	Duration   time.Duration
	SampleRate int
	Channels   int
	Size       int64
	CreatedAt  time.Time
}

// Store handles database operations
type Store struct {
	dbPath string
	db     *sql.DB

	closeOnce sync.Once
	closeErr  error
}

// Open opens or creates the catalog at dbPath and initializes the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	if _, err = db.Exec(initSchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{dbPath: dbPath, db: db}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

// AddTake records t and returns its ID. A zero CreatedAt is set to now.
func (s *Store) AddTake(ctx context.Context, t Take) (id int64, err error) {
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	stmt, err := s.db.PrepareContext(ctx, insertTakeSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(
		ctx,
		t.Path,
		t.Duration.Milliseconds(),
		t.SampleRate,
		t.Channels,
		t.Size,
		created.UTC(),
	)
	if err != nil {
		err = fmt.Errorf("inserting take: %w", err)
		return
	}

	id, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting take ID: %w", err)
	}
	return
}

// Takes lists every take, newest first.
func (s *Store) Takes(ctx context.Context) (takes []Take, err error) {
	rows, err := s.db.QueryContext(ctx, selectTakesSQL)
	if err != nil {
		err = fmt.Errorf("querying takes: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var t Take
		var durationMS int64
		if err = rows.Scan(&t.ID, &t.Path, &durationMS, &t.SampleRate, &t.Channels, &t.Size, &t.CreatedAt); err != nil {
			err = fmt.Errorf("scanning take: %w", err)
			return
		}
		t.Duration = time.Duration(durationMS) * time.Millisecond
		takes = append(takes, t)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating takes: %w", err)
	}
	return
}

// DeleteTake removes the take with the given ID.
func (s *Store) DeleteTake(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, deleteTakeSQL, id)
	if err != nil {
		return fmt.Errorf("deleting take: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
