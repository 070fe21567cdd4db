package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/confhub/internal/hub"
	"github.com/zjrosen/confhub/internal/log"
)

// ErrSessionNotFound is returned when a session ID has no row.
var ErrSessionNotFound = errors.New("journal: session not found")

// Session is one recorded load batch.
type Session struct {
	ID        string
	Dir       string
	Format    string
	State     string
	Total     int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

// TableRow is one table's outcome within a recorded session.
type TableRow struct {
	Name     string
	Path     string
	Duration time.Duration
	Kind     string
	Error    string
}

// OK reports whether the table loaded cleanly.
func (r TableRow) OK() bool { return r.Error == "" }

// Journal reads and writes session history.
type Journal struct {
	db *sql.DB
}

// Record stores a report and its table rows in one transaction. Recording the
// same session ID twice replaces the earlier rows.
func (j *Journal) Record(ctx context.Context, r hub.Report) error {
	if r.SessionID == "" {
		return errors.New("journal: report has no session id")
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, r.SessionID); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, dir, format, state, total, failed, started_at, duration_us)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.Dir, r.Format.String(), r.State.String(),
		len(r.Tables), r.Failed(), r.StartedAt.UnixNano(), r.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO session_tables (session_id, name, path, duration_us, kind, error)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing table insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range r.Tables {
		msg := ""
		if t.Err != nil {
			msg = t.Err.Error()
		}
		if _, err := stmt.ExecContext(ctx, r.SessionID, t.Name, t.Path, t.Duration.Microseconds(), t.Kind(), msg); err != nil {
			return fmt.Errorf("inserting table %s: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Debug(log.CatJournal, "Recorded session", "session", r.SessionID, "tables", len(r.Tables), "failed", r.Failed())
	return nil
}

// Recent returns up to limit sessions, newest first. A non-positive limit
// returns all sessions.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT id, dir, format, state, total, failed, started_at, duration_us
		FROM sessions ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Session returns one session by ID.
func (j *Journal) Session(ctx context.Context, id string) (Session, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, dir, format, state, total, failed, started_at, duration_us
		 FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("reading session: %w", err)
	}
	return s, nil
}

// Tables returns the table rows of a session sorted by name.
func (j *Journal) Tables(ctx context.Context, sessionID string) ([]TableRow, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT name, path, duration_us, kind, error
		 FROM session_tables WHERE session_id = ? ORDER BY name`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TableRow
	for rows.Next() {
		var (
			r  TableRow
			us int64
		)
		if err := rows.Scan(&r.Name, &r.Path, &us, &r.Kind, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning table: %w", err)
		}
		r.Duration = time.Duration(us) * time.Microsecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep sessions and deletes the rest, returning the
// number of sessions removed.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id NOT IN (
			SELECT id FROM sessions ORDER BY started_at DESC, id LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info(log.CatJournal, "Pruned sessions", "removed", n, "kept", keep)
	}
	return n, nil
}

func scanSession(scanner interface{ Scan(...any) error }) (Session, error) {
	var (
		s       Session
		started int64
		us      int64
	)
	if err := scanner.Scan(&s.ID, &s.Dir, &s.Format, &s.State, &s.Total, &s.Failed, &started, &us); err != nil {
		return Session{}, err
	}
	s.StartedAt = time.Unix(0, started)
	s.Duration = time.Duration(us) * time.Microsecond
	return s, nil
}
