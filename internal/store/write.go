package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BeginSweep inserts a sweep row. The sweep ID must be new.
func (s *Store) BeginSweep(ctx context.Context, sw Sweep) error {
	spec := string(sw.Spec)
	if spec == "" {
		spec = "{}"
	}
	state := sw.State
	if state == "" {
		state = StateRunning
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sweeps
		(id, backend, spec, state, planned, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		sw.ID,
		sw.Backend,
		spec,
		state,
		sw.Planned,
		formatTime(sw.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("begin sweep: %w", err)
	}
	return nil
}

// RecordSubmission appends a submission to its sweep.
//
// Note: The sweep referenced by SweepID must exist (foreign key constraint),
// and (SweepID, Seq) must be unique.
func (s *Store) RecordSubmission(ctx context.Context, sub Submission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions
		(sweep_id, seq, dataset, shot, seed, branch, rank, output_dir, command,
		 fingerprint, job_name, job_id, exit_code, status, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sub.SweepID,
		sub.Seq,
		sub.Dataset,
		sub.Shot,
		sub.Seed,
		sub.Branch,
		sub.Rank,
		sub.OutputDir,
		sub.Command,
		sub.Fingerprint,
		sub.JobName,
		sub.JobID,
		sub.ExitCode,
		sub.Status,
		formatTime(sub.SubmittedAt),
	)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// FinishSweep sets the final state of a sweep. errMsg is stored for aborted
// sweeps and may be empty. Returns sql.ErrNoRows if the sweep does not exist.
func (s *Store) FinishSweep(ctx context.Context, id, state string, finishedAt time.Time, errMsg string) error {
	var errCol any
	if errMsg != "" {
		errCol = errMsg
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sweeps
		SET state = ?, finished_at = ?, error = ?
		WHERE id = ?
	`, state, formatTime(finishedAt), errCol, id)
	if err != nil {
		return fmt.Errorf("finish sweep: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish sweep: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish sweep %q: %w", id, sql.ErrNoRows)
	}
	return nil
}
