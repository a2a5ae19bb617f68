// Package history persists a local record of completed transcription runs
// in a SQLite database under the user data directory.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested history entry does not exist.
var ErrNotFound = errors.New("history entry not found")

// Entry is one completed transcription run.
type Entry struct {
	ID           string
	SourcePath   string
	Fingerprint  string
	OutputPath   string
	Kind         string
	Model        string
	Language     string
	SpeakerMode  string
	SegmentCount int
	SpeakerCount int
	Elapsed      time.Duration
	CreatedAt    time.Time
}

// Store is the SQLite-backed run history.
type Store struct {
	db *sql.DB
}

const schema = `
create table if not exists runs (
	id            text primary key,
	source_path   text not null,
	fingerprint   text not null,
	output_path   text not null,
	kind          text not null,
	model         text not null,
	language      text not null,
	speaker_mode  text not null,
	segment_count integer not null,
	speaker_count integer not null,
	elapsed_ms    integer not null,
	created_at    integer not null
);
create index if not exists runs_fingerprint on runs (fingerprint);
`

// Open opens (creating if needed) the history database at path. The parent
// directory is created if it does not exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a run and returns it with its assigned id and timestamp.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx, `
		insert into runs (
			id, source_path, fingerprint, output_path, kind, model,
			language, speaker_mode, segment_count, speaker_count,
			elapsed_ms, created_at
		) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.SourcePath, e.Fingerprint, e.OutputPath, e.Kind, e.Model,
		e.Language, e.SpeakerMode, e.SegmentCount, e.SpeakerCount,
		e.Elapsed.Milliseconds(), e.CreatedAt.Unix(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("persisting run into sqlite: %w", err)
	}
	return e, nil
}

// Get returns the entry with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, source_path, fingerprint, output_path, kind, model,
			language, speaker_mode, segment_count, speaker_count,
			elapsed_ms, created_at
		from runs where id = $1`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get run by id: %w", err)
	}
	return e, nil
}

// List returns up to limit entries, most recent first. A non-positive
// limit returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, source_path, fingerprint, output_path, kind, model,
			language, speaker_mode, segment_count, speaker_count,
			elapsed_ms, created_at
		from runs
		order by created_at desc, id desc
		limit $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return out, nil
}

// ForSource returns entries whose source fingerprint matches, most recent
// first. It lets the CLI show earlier transcriptions of the same media
// even after the file was moved or renamed.
func (s *Store) ForSource(ctx context.Context, fingerprint string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, source_path, fingerprint, output_path, kind, model,
			language, speaker_mode, segment_count, speaker_count,
			elapsed_ms, created_at
		from runs
		where fingerprint = $1
		order by created_at desc, id desc`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("listing runs by fingerprint: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("listing runs by fingerprint: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs by fingerprint: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var elapsedMS, createdAt int64
	err := row.Scan(
		&e.ID, &e.SourcePath, &e.Fingerprint, &e.OutputPath, &e.Kind,
		&e.Model, &e.Language, &e.SpeakerMode, &e.SegmentCount,
		&e.SpeakerCount, &elapsedMS, &createdAt,
	)
	if err != nil {
		return Entry{}, err
	}
	e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	return e, nil
}
