package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	// pq is the PostgreSQL driver.
	_ "github.com/lib/pq"

	"voice-dataset-collector/internal/objectstore"
)

// PostgresStore keeps metadata rows in PostgreSQL and audio blobs in MinIO,
// one object per entry named after the filename. If the row insert fails
// after the blob was stored, the blob is deleted so no orphan remains.
type PostgresStore struct {
	db    *sql.DB
	blobs *objectstore.MinioClient
}

// OpenPostgres opens and pings a PostgreSQL connection.
func OpenPostgres(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewPostgresStore wires the store and creates the entries table when it
// does not exist yet.
func NewPostgresStore(ctx context.Context, db *sql.DB, blobs *objectstore.MinioClient) (*PostgresStore, error) {
	s := &PostgresStore{db: db, blobs: blobs}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS voice_entries (
			filename     TEXT PRIMARY KEY,
			speaker_id   TEXT NOT NULL DEFAULT '',
			text         TEXT NOT NULL,
			language     TEXT NOT NULL,
			environment  TEXT NOT NULL,
			intent       TEXT NOT NULL DEFAULT '',
			object_color TEXT NOT NULL DEFAULT '',
			target_color TEXT NOT NULL DEFAULT '',
			direction    TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create voice_entries table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Insert(ctx context.Context, e *Entry) (string, error) {
	e.Filename = NewAudioFilename()
	e.Timestamp = time.Now().UTC()

	if err := s.blobs.Upload(ctx, e.Filename, "audio/webm", e.Audio); err != nil {
		return "", fmt.Errorf("%w: store audio blob %s: %w", ErrStorageWrite, e.Filename, err)
	}

	query := `
		INSERT INTO voice_entries (filename, speaker_id, text, language, environment, intent, object_color, target_color, direction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		e.Filename,
		e.SpeakerID,
		e.Text,
		e.Language,
		e.Environment,
		e.Intent,
		e.ObjectColor,
		e.TargetColor,
		e.Direction,
		e.Timestamp,
	)
	if err != nil {
		if delErr := s.blobs.Delete(ctx, e.Filename); delErr != nil {
			log.Printf("CRITICAL: failed to delete blob '%s' after DB error: %v. DB error was: %v", e.Filename, delErr, err)
		}
		return "", fmt.Errorf("%w: insert metadata row for %s: %w", ErrStorageWrite, e.Filename, err)
	}

	return e.Filename, nil
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if f.Language != "" {
		conditions = append(conditions, fmt.Sprintf("language = $%d", argID))
		args = append(args, f.Language)
		argID++
	}
	if f.Environment != "" {
		conditions = append(conditions, fmt.Sprintf("environment = $%d", argID))
		args = append(args, f.Environment)
		argID++
	}
	if f.Intent != "" {
		conditions = append(conditions, fmt.Sprintf("intent = $%d", argID))
		args = append(args, f.Intent)
		argID++
	}

	query := "SELECT COUNT(*) FROM voice_entries"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) List(ctx context.Context, includeAudio bool) ([]*Entry, error) {
	query := `
		SELECT filename, speaker_id, text, language, environment, intent, object_color, target_color, direction, created_at
		FROM voice_entries
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, MaxListEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(
			&e.Filename,
			&e.SpeakerID,
			&e.Text,
			&e.Language,
			&e.Environment,
			&e.Intent,
			&e.ObjectColor,
			&e.TargetColor,
			&e.Direction,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for entries: %w", err)
	}

	if includeAudio {
		for _, e := range entries {
			data, err := s.blobs.GetBytes(ctx, e.Filename)
			if err != nil {
				// Row without its blob; export keeps the metadata and
				// skips the audio member.
				log.Printf("audio blob missing for entry %s: %v", e.Filename, err)
				continue
			}
			e.Audio = data
		}
	}
	return entries, nil
}

func (s *PostgresStore) GetByFilename(ctx context.Context, filename string) (*Entry, error) {
	query := `
		SELECT filename, speaker_id, text, language, environment, intent, object_color, target_color, direction, created_at
		FROM voice_entries
		WHERE filename = $1
	`
	e := &Entry{}
	err := s.db.QueryRowContext(ctx, query, filename).Scan(
		&e.Filename,
		&e.SpeakerID,
		&e.Text,
		&e.Language,
		&e.Environment,
		&e.Intent,
		&e.ObjectColor,
		&e.TargetColor,
		&e.Direction,
		&e.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entry %s: %w", filename, err)
	}

	data, err := s.blobs.GetBytes(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio blob for %s: %w", filename, err)
	}
	e.Audio = data
	return e, nil
}
