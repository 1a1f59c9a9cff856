package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/rahul/kadam/internal/workflow"
)

// RunStore archives finished runs in a local sqlite database.
type RunStore struct {
	DB *sql.DB
}

var _ workflow.RunArchive = (*RunStore)(nil)

func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			objective TEXT,
			status TEXT,
			error TEXT,
			plan TEXT,
			steps_done INTEGER,
			started_at TEXT,
			finished_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			step INTEGER,
			task TEXT,
			report TEXT
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			return nil, err
		}
	}

	return &RunStore{DB: db}, nil
}

// SaveRun writes one finished run and its step reports atomically.
func (s *RunStore) SaveRun(ctx context.Context, rec workflow.RunRecord) error {
	planJSON, err := json.Marshal(rec.Plan)
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, objective, status, error, plan, steps_done, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Objective, rec.Status, rec.Error, string(planJSON), len(rec.Results),
		rec.StartedAt.Format(time.RFC3339), rec.FinishedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	for i, report := range rec.Results {
		task := ""
		if i < len(rec.Plan) {
			task = rec.Plan[i]
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO reports (run_id, step, task, report) VALUES (?, ?, ?, ?)`,
			rec.ID, i+1, task, report)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, objective, status, error, plan, steps_done, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var planJSON, started, finished string
		if err := rows.Scan(&r.ID, &r.Objective, &r.Status, &r.Error, &planJSON, &r.StepsDone, &started, &finished); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(planJSON), &r.Plan); err != nil {
			r.Plan = nil
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Reports returns the step reports of one run in execution order.
func (s *RunStore) Reports(ctx context.Context, runID string) ([]Report, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT step, task, report FROM reports WHERE run_id = ? ORDER BY step ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.Step, &r.Task, &r.Report); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *RunStore) Close() error {
	return s.DB.Close()
}
