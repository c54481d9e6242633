package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shield-go/internal/database/migrations"
	"shield-go/internal/model"
	"shield-go/internal/shield"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path and applies pending migrations.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing, already migrated connection.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, and SQLite
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Target operations

const targetColumns = "id, name, category, risk_level, url, enabled, created_at"

func (s *SQLiteDatabase) CreateTarget(target *model.MonitoringTarget) error {
	_, err := s.db.Exec(
		"INSERT INTO targets ("+targetColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		target.ID, target.Name, target.Category, string(target.RiskLevel), target.URL, target.Enabled, target.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating target %s: %w", target.Name, err)
	}
	return nil
}

func (s *SQLiteDatabase) FindTargetByID(id string) (*model.MonitoringTarget, error) {
	row := s.db.QueryRow("SELECT "+targetColumns+" FROM targets WHERE id = ?", id)
	target, err := scanTarget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding target by id: %w", err)
	}
	return target, nil
}

func (s *SQLiteDatabase) FindTargetByName(name string) (*model.MonitoringTarget, error) {
	row := s.db.QueryRow("SELECT "+targetColumns+" FROM targets WHERE name = ?", name)
	target, err := scanTarget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding target by name: %w", err)
	}
	return target, nil
}

func (s *SQLiteDatabase) ListTargets() ([]*model.MonitoringTarget, error) {
	rows, err := s.db.Query("SELECT " + targetColumns + " FROM targets ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	defer rows.Close()

	var targets []*model.MonitoringTarget
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("reading target row: %w", err)
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	return targets, nil
}

func (s *SQLiteDatabase) UpdateTarget(target *model.MonitoringTarget) error {
	res, err := s.db.Exec(
		"UPDATE targets SET name = ?, category = ?, risk_level = ?, url = ?, enabled = ? WHERE id = ?",
		target.Name, target.Category, string(target.RiskLevel), target.URL, target.Enabled, target.ID,
	)
	if err != nil {
		return fmt.Errorf("updating target %s: %w", target.ID, err)
	}
	return requireRow(res, target.ID)
}

func (s *SQLiteDatabase) DeleteTarget(id string) error {
	res, err := s.db.Exec("DELETE FROM targets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting target %s: %w", id, err)
	}
	return requireRow(res, id)
}

// Session history

const sessionColumns = "id, status, started_at, completed_at, targets_scanned, total_targets, matches_found, pairs_failed, progress, error"

// AppendSession inserts the session and trims the history to keep entries
// in a single transaction.
func (s *SQLiteDatabase) AppendSession(session *model.MonitoringSession, keep int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var completedAt sql.NullTime
	if session.CompletedAt != nil {
		completedAt = sql.NullTime{Time: session.CompletedAt.UTC(), Valid: true}
	}

	_, err = tx.Exec(
		"INSERT INTO scan_sessions ("+sessionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		session.ID, string(session.Status), session.StartedAt.UTC(), completedAt,
		session.TargetsScanned, session.TotalTargets, session.MatchesFound, session.PairsFailed,
		session.Progress, session.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting session %s: %w", session.ID, err)
	}

	if keep > 0 {
		_, err = tx.Exec(
			"DELETE FROM scan_sessions WHERE seq NOT IN (SELECT seq FROM scan_sessions ORDER BY seq DESC LIMIT ?)",
			keep,
		)
		if err != nil {
			return fmt.Errorf("trimming session history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session %s: %w", session.ID, err)
	}
	return nil
}

// ListSessions returns up to limit sessions, newest first. A non-positive
// limit returns the whole history.
func (s *SQLiteDatabase) ListSessions(limit int) ([]*model.MonitoringSession, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query("SELECT "+sessionColumns+" FROM scan_sessions ORDER BY seq DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.MonitoringSession
	for rows.Next() {
		var (
			m           model.MonitoringSession
			status      string
			completedAt sql.NullTime
		)
		err := rows.Scan(&m.ID, &status, &m.StartedAt, &completedAt,
			&m.TargetsScanned, &m.TotalTargets, &m.MatchesFound, &m.PairsFailed, &m.Progress, &m.Error)
		if err != nil {
			return nil, fmt.Errorf("reading session row: %w", err)
		}
		m.Status = model.SessionStatus(status)
		if completedAt.Valid {
			t := completedAt.Time
			m.CompletedAt = &t
		}
		sessions = append(sessions, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(row rowScanner) (*model.MonitoringTarget, error) {
	var (
		t         model.MonitoringTarget
		risk      string
		createdAt time.Time
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Category, &risk, &t.URL, &t.Enabled, &createdAt); err != nil {
		return nil, err
	}
	t.RiskLevel = model.RiskLevel(risk)
	t.CreatedAt = createdAt
	return &t, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", shield.ErrTargetNotFound, id)
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements shield.Database interface
var _ shield.Database = (*SQLiteDatabase)(nil)
