package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sjawhar/fft-analyzer/internal/capture"
	"github.com/sjawhar/fft-analyzer/internal/plan"
)

const (
	StatusActive = "active"
	StatusDone   = "done"
	StatusFailed = "failed"
)

type Session struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Status       string     `json:"status"`
	Blocks       int        `json:"blocks"`
	Skipped      int        `json:"skipped"`
	SampleRateHz int        `json:"sample_rate_hz"`
	BlockSamples int        `json:"block_samples"`
	AudioPath    string     `json:"audio_path"`
}

// Band is one aggregated band value of one block.
type Band struct {
	Block int     `json:"block"`
	Band  int     `json:"band"`
	LowHz float64 `json:"low_hz"`
	Value float64 `json:"value"`
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "fft-analyzer.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			status TEXT NOT NULL,
			blocks INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			sample_rate_hz INTEGER NOT NULL,
			block_samples INTEGER NOT NULL,
			audio_path TEXT NOT NULL DEFAULT ''
		);
	`); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bands (
			session_id TEXT NOT NULL,
			block INTEGER NOT NULL,
			band INTEGER NOT NULL,
			low_hz REAL NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY(session_id, block, band),
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create bands table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)"); err != nil {
		return fmt.Errorf("create sessions index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateSession(id string, startedAt time.Time, sizing plan.Sizing) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("session id is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions(id, started_at, status, sample_rate_hz, block_samples) VALUES(?, ?, ?, ?, ?)`,
		id,
		startedAt.UTC().Format(time.RFC3339Nano),
		StatusActive,
		sizing.SampleRateHz,
		sizing.BlockLengthSamples,
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) EndSession(id string, endedAt time.Time, end capture.SessionEnd) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ?, status = ?, blocks = ?, skipped = ?, audio_path = ? WHERE id = ?`,
		endedAt.UTC().Format(time.RFC3339Nano),
		end.Status,
		end.Blocks,
		end.Skipped,
		end.AudioPath,
		id,
	)
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendBands stores every band of one block in a single transaction.
func (s *SQLiteStore) AppendBands(sessionID string, block int, edges, values []float64) error {
	if len(edges) != len(values) {
		return fmt.Errorf("append bands for session %s: %d edges for %d values", sessionID, len(edges), len(values))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin bands tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO bands(session_id, block, band, low_hz, value) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bands insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, v := range values {
		if _, err := stmt.Exec(sessionID, block, i, edges[i], v); err != nil {
			return fmt.Errorf("append band %d of block %d for session %s: %w", i, block, sessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bands for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSessionsByDate(date string) ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, ended_at, status, blocks, skipped, sample_rate_hz, block_samples, audio_path
		 FROM sessions
		 WHERE substr(started_at, 1, 10) = ?
		 ORDER BY started_at DESC`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions by date %s: %w", date, err)
	}
	defer func() { _ = rows.Close() }()

	return scanSessions(rows)
}

func (s *SQLiteStore) GetDates() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT substr(started_at, 1, 10) AS date FROM sessions ORDER BY date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dates rows: %w", err)
	}

	return dates, nil
}

func (s *SQLiteStore) GetSession(id string) (Session, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, ended_at, status, blocks, skipped, sample_rate_hz, block_samples, audio_path
		 FROM sessions WHERE id = ?`,
		id,
	)
	if err != nil {
		return Session{}, fmt.Errorf("query session %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	sessions, err := scanSessions(rows)
	if err != nil {
		return Session{}, fmt.Errorf("session %s: %w", id, err)
	}
	if len(sessions) == 0 {
		return Session{}, fmt.Errorf("query session %s: %w", id, sql.ErrNoRows)
	}
	return sessions[0], nil
}

func (s *SQLiteStore) GetBands(sessionID string) ([]Band, error) {
	rows, err := s.db.Query(
		`SELECT block, band, low_hz, value
		 FROM bands
		 WHERE session_id = ?
		 ORDER BY block ASC, band ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query bands for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	bands := make([]Band, 0, 32)
	for rows.Next() {
		var b Band
		if err := rows.Scan(&b.Block, &b.Band, &b.LowHz, &b.Value); err != nil {
			return nil, fmt.Errorf("scan band for session %s: %w", sessionID, err)
		}
		bands = append(bands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate band rows for session %s: %w", sessionID, err)
	}

	return bands, nil
}

func scanSessions(rows *sql.Rows) ([]Session, error) {
	sessions := make([]Session, 0, 16)
	for rows.Next() {
		var sess Session
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&sess.ID, &startedAt, &endedAt, &sess.Status, &sess.Blocks, &sess.Skipped,
			&sess.SampleRateHz, &sess.BlockSamples, &sess.AudioPath); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		parsedStart, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		sess.StartedAt = parsedStart

		if endedAt.Valid {
			parsedEnd, err := time.Parse(time.RFC3339Nano, endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
			sess.EndedAt = &parsedEnd
		}

		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions rows: %w", err)
	}

	return sessions, nil
}
