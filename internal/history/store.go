package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"danmaku/internal/services"
)

// DefaultLimit bounds Recent when no limit is given.
const DefaultLimit = 20

// Entry is one finished playback run.
type Entry struct {
	ID         int64
	RunID      string
	Video      string
	Outcome    services.Outcome
	EpisodeID  int64
	Episode    string
	Comments   int
	Artifact   string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns how long the run took.
func (e Entry) Elapsed() time.Duration {
	if e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store persists playback runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the history database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "history", "open", "create history dir", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "history", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrPersistence, "history", "migrate", "apply migrations", err)
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry and returns it with its row id.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.RunID == "" {
		return entry, errors.New("history entry requires a run id")
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = entry.FinishedAt
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO playback_runs (
            run_id, video, outcome, episode_id, episode, comments,
            artifact, error_message, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Video,
		string(entry.Outcome),
		nullableInt(entry.EpisodeID),
		nullableString(entry.Episode),
		entry.Comments,
		nullableString(entry.Artifact),
		nullableString(entry.Error),
		formatTime(entry.StartedAt),
		formatTime(entry.FinishedAt),
	)
	if err != nil {
		return entry, services.Wrap(services.ErrPersistence, "history", "record", "insert run", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return entry, fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	return entry, nil
}

// Recent returns the newest runs first. A non-empty video restricts the
// result to that file.
func (s *Store) Recent(ctx context.Context, limit int, video string) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query := `SELECT id, run_id, video, outcome, episode_id, episode, comments,
        artifact, error_message, started_at, finished_at FROM playback_runs`
	args := []any{}
	if video != "" {
		query += ` WHERE video = ?`
		args = append(args, video)
	}
	query += ` ORDER BY finished_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune deletes runs that finished before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playback_runs WHERE finished_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "history", "prune", "delete old runs", err)
	}
	return res.RowsAffected()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry                      Entry
		outcome                    string
		episodeID                  sql.NullInt64
		episode, artifact, errText sql.NullString
		started, finished          string
	)
	if err := rows.Scan(&entry.ID, &entry.RunID, &entry.Video, &outcome, &episodeID, &episode,
		&entry.Comments, &artifact, &errText, &started, &finished); err != nil {
		return Entry{}, fmt.Errorf("scan history row: %w", err)
	}
	entry.Outcome = services.Outcome(outcome)
	entry.EpisodeID = episodeID.Int64
	entry.Episode = episode.String
	entry.Artifact = artifact.String
	entry.Error = errText.String
	entry.StartedAt = parseTime(started)
	entry.FinishedAt = parseTime(finished)
	return entry, nil
}

// timeLayout is fixed width so stored timestamps order correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
