// Package store persists interview setup and finished feedback reports in a
// local sqlite database. Resume text is deliberately never written here; it
// lives only in memory for the duration of a session.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/mockmate/mockmate/pkg/analyze"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Settings is the interview setup the user last chose.
type Settings struct {
	Role            string
	Persona         string
	Context         string
	GesturesEnabled bool
}

// SavedReport is a feedback report with its persistence envelope. The
// transcript the report was scored from is kept alongside it.
type SavedReport struct {
	ID         string
	CreatedAt  time.Time
	Report     analyze.Report
	Transcript string
}

// Store wraps the sqlite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the parent directory if needed, opens the database at path
// and runs pending migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, logger: logger.With("component", "store")}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const (
	keyRole     = "role"
	keyPersona  = "persona"
	keyContext  = "context"
	keyGestures = "gestures_enabled"
)

// SaveSettings upserts the interview setup.
func (s *Store) SaveSettings(ctx context.Context, settings Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	pairs := map[string]string{
		keyRole:     settings.Role,
		keyPersona:  settings.Persona,
		keyContext:  settings.Context,
		keyGestures: strconv.FormatBool(settings.GesturesEnabled),
	}
	for key, value := range pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, value); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}

// LoadSettings reads the saved setup. A never-saved database yields the zero
// Settings without error.
func (s *Store) LoadSettings(ctx context.Context) (Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	var settings Settings
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, fmt.Errorf("scan setting: %w", err)
		}
		switch key {
		case keyRole:
			settings.Role = value
		case keyPersona:
			settings.Persona = value
		case keyContext:
			settings.Context = value
		case keyGestures:
			settings.GesturesEnabled = value == "true"
		}
	}
	if err := rows.Err(); err != nil {
		return Settings{}, fmt.Errorf("iterate settings: %w", err)
	}
	return settings, nil
}

// SaveReport persists a finished report with the transcript it was scored
// from and returns its generated id.
func (s *Store) SaveReport(ctx context.Context, report analyze.Report, transcript string) (string, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	id := uuid.NewString()
	createdAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, created_at, score, payload, transcript) VALUES (?, ?, ?, ?, ?)`,
		id, createdAt, report.Score, string(payload), transcript); err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}
	s.logger.Info("report saved", "id", id, "score", report.Score)
	return id, nil
}

// GetReport loads one report by id.
func (s *Store) GetReport(ctx context.Context, id string) (SavedReport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, payload, transcript FROM reports WHERE id = ?`, id)
	saved, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedReport{}, fmt.Errorf("report %s not found", id)
	}
	return saved, err
}

// ListReports returns saved reports, newest first, capped at limit.
func (s *Store) ListReports(ctx context.Context, limit int) ([]SavedReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, payload, transcript FROM reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []SavedReport
	for rows.Next() {
		saved, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (SavedReport, error) {
	var (
		saved     SavedReport
		createdAt string
		payload   string
	)
	if err := row.Scan(&saved.ID, &createdAt, &payload, &saved.Transcript); err != nil {
		return SavedReport{}, err
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return SavedReport{}, fmt.Errorf("parse created_at: %w", err)
	}
	saved.CreatedAt = ts
	if err := json.Unmarshal([]byte(payload), &saved.Report); err != nil {
		return SavedReport{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return saved, nil
}
