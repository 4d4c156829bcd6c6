package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/ahrav/go-chateval/internal/domain"
)

// Run is one evaluation run as stored in the results database.
type Run struct {
	ID          string
	CreatedAt   time.Time
	DatasetPath string
	Config      map[string]any
	Params      map[string]any
	Results     []domain.EvaluationResult
}

// Store keeps evaluation runs in SQLite so runs can be compared over time.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the database at path. ":memory:" gives a
// private in-memory database.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			dataset_path TEXT,
			config TEXT,
			params TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id TEXT NOT NULL REFERENCES runs(id),
			idx INTEGER NOT NULL,
			question TEXT NOT NULL,
			reference_answer TEXT NOT NULL,
			predicted_answer TEXT NOT NULL,
			duration REAL NOT NULL,
			scores TEXT NOT NULL,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// SaveRun stores run and its results in one transaction. An empty run ID
// is replaced with a new UUID. It returns the run ID.
func (s *Store) SaveRun(ctx context.Context, run *Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	config, err := json.Marshal(run.Config)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	params, err := json.Marshal(run.Params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal params: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, dataset_path, config, params) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.DatasetPath, string(config), string(params),
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, idx, question, reference_answer, predicted_answer, duration, scores)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Results {
		scores, err := json.Marshal(r.Scores)
		if err != nil {
			return "", fmt.Errorf("failed to marshal scores: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID, r.Index, r.Question, r.ReferenceAnswer, r.PredictedAnswer, r.Duration, string(scores),
		); err != nil {
			return "", fmt.Errorf("failed to insert result %d: %w", r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// Results returns the results of runID in dataset order.
func (s *Store) Results(ctx context.Context, runID string) ([]domain.EvaluationResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, question, reference_answer, predicted_answer, duration, scores
		FROM results WHERE run_id = ? ORDER BY idx
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []domain.EvaluationResult
	for rows.Next() {
		var r domain.EvaluationResult
		var scores string
		if err := rows.Scan(&r.Index, &r.Question, &r.ReferenceAnswer, &r.PredictedAnswer, &r.Duration, &scores); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(scores), &r.Scores); err != nil {
			return nil, fmt.Errorf("failed to decode scores: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return out, nil
}

// RunIDs lists stored run IDs, newest first.
func (s *Store) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
