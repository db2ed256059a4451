package store

import (
	"context"
	"database/sql"
	"fmt"
)

const sweepColumns = `id, backend, spec, state, planned, started_at, finished_at, error`

const submissionColumns = `sweep_id, seq, dataset, shot, seed, branch, rank, output_dir, command,
	fingerprint, job_name, job_id, exit_code, status, submitted_at`

// ListSweeps returns sweeps, most recently started first.
// limit <= 0 returns all sweeps.
//
// Returns an empty slice (not nil) if the ledger is empty.
func (s *Store) ListSweeps(ctx context.Context, limit int) ([]Sweep, error) {
	query := `SELECT ` + sweepColumns + ` FROM sweeps ORDER BY started_at DESC, id COLLATE BINARY DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sweeps: %w", err)
	}
	defer rows.Close()

	sweeps := []Sweep{}
	for rows.Next() {
		sw, err := scanSweep(rows)
		if err != nil {
			return nil, err
		}
		sweeps = append(sweeps, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweeps: %w", err)
	}
	return sweeps, nil
}

// GetSweep retrieves a single sweep by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetSweep(ctx context.Context, id string) (Sweep, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sweepColumns+` FROM sweeps WHERE id = ?`, id)
	return scanSweep(row)
}

// ListSubmissions returns a sweep's submissions in submission order.
//
// Returns an empty slice (not nil) if the sweep has none.
func (s *Store) ListSubmissions(ctx context.Context, sweepID string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE sweep_id = ?
		ORDER BY seq ASC
	`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	subs := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}

// HasAccepted reports whether any sweep has an accepted submission with
// the given run fingerprint.
func (s *Store) HasAccepted(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM submissions
			WHERE fingerprint = ? AND status = ?
		)
	`, fingerprint, StatusAccepted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query accepted submission: %w", err)
	}
	return exists, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSweep(row scanner) (Sweep, error) {
	var (
		sw         Sweep
		spec       string
		startedAt  string
		finishedAt sql.NullString
		errMsg     sql.NullString
	)
	err := row.Scan(&sw.ID, &sw.Backend, &spec, &sw.State, &sw.Planned, &startedAt, &finishedAt, &errMsg)
	if err != nil {
		if err == sql.ErrNoRows {
			return Sweep{}, err
		}
		return Sweep{}, fmt.Errorf("scan sweep: %w", err)
	}

	sw.Spec = []byte(spec)
	sw.Error = errMsg.String
	if sw.StartedAt, err = parseTime(startedAt); err != nil {
		return Sweep{}, err
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return Sweep{}, err
		}
		sw.FinishedAt = &t
	}
	return sw, nil
}

func scanSubmission(row scanner) (Submission, error) {
	var (
		sub         Submission
		submittedAt string
	)
	err := row.Scan(
		&sub.SweepID, &sub.Seq, &sub.Dataset, &sub.Shot, &sub.Seed, &sub.Branch, &sub.Rank,
		&sub.OutputDir, &sub.Command, &sub.Fingerprint, &sub.JobName, &sub.JobID,
		&sub.ExitCode, &sub.Status, &submittedAt,
	)
	if err != nil {
		return Submission{}, fmt.Errorf("scan submission: %w", err)
	}
	if sub.SubmittedAt, err = parseTime(submittedAt); err != nil {
		return Submission{}, err
	}
	return sub, nil
}
