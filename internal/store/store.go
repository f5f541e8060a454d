package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/charta/internal/model"
)

// Store is a run repository backed by SQLite
type Store struct {
	db *sql.DB
}

// RunSummary is one row of the runs table
type RunSummary struct {
	ID          string
	Mode        model.RunMode
	CreatedAt   time.Time
	Settings    string
	Documents   int
	Sentences   int
	Skipped     int
	Violations  int
	ElapsedSecs float64
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport writes a run with its sentence and evaluation results in one
// transaction
func (s *Store) SaveReport(ctx context.Context, r *model.Report) error {
	settings, err := json.Marshal(r.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs(id, mode, created_at, settings, documents, sentences, skipped, violations, elapsed_secs) VALUES(?,?,?,?,?,?,?,?,?)`,
		r.RunID,
		string(r.Mode),
		r.CreatedAt.UTC().Format(time.RFC3339),
		string(settings),
		r.Summary.Documents,
		r.Summary.Sentences,
		r.Summary.Skipped,
		r.Summary.Violations,
		r.Summary.ElapsedSecs,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, d := range r.Documents {
		for _, sr := range d.Sentences {
			var trueLabel interface{}
			if sr.TrueLabel != nil {
				trueLabel = sr.TrueLabel.String()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sentences(run_id, document_id, idx, text, label, paragraph, source, rule, true_label) VALUES(?,?,?,?,?,?,?,?,?)`,
				r.RunID,
				d.ID,
				sr.Index,
				sr.Text,
				sr.Label.String(),
				sr.Paragraph.String(),
				string(sr.Source),
				sr.Rule,
				trueLabel,
			); err != nil {
				return fmt.Errorf("insert sentence: %w", err)
			}
		}
	}

	for _, e := range r.Evaluations {
		result, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal evaluation: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO evaluations(run_id, config, macro_precision, macro_recall, macro_f1, micro_precision, micro_recall, micro_f1, result) VALUES(?,?,?,?,?,?,?,?,?)`,
			r.RunID,
			e.Settings.String(),
			e.Macro.Precision,
			e.Macro.Recall,
			e.Macro.F1,
			e.Micro.Precision,
			e.Micro.Recall,
			e.Micro.F1,
			string(result),
		); err != nil {
			return fmt.Errorf("insert evaluation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT id, mode, created_at, settings, documents, sentences, skipped, violations, elapsed_secs FROM runs ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunSummary
	for rows.Next() {
		var (
			r         RunSummary
			mode      string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &mode, &createdAt, &r.Settings, &r.Documents, &r.Sentences, &r.Skipped, &r.Violations, &r.ElapsedSecs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Mode = model.RunMode(mode)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Evaluations returns the stored evaluation results of a run, best macro F1
// first
func (s *Store) Evaluations(ctx context.Context, runID string) ([]model.EvaluationResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM evaluations WHERE run_id = ? ORDER BY macro_f1 DESC, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.EvaluationResult
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		var e model.EvaluationResult
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode evaluation: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountSentences returns the number of stored sentence results of a run
func (s *Store) CountSentences(ctx context.Context, runID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sentences WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sentences: %w", err)
	}
	return n, nil
}
