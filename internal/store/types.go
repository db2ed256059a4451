package store

import (
	"encoding/json"
	"time"
)

// Sweep states as stored in the ledger.
const (
	StateRunning   = "running"
	StateCompleted = "completed"
	StateAborted   = "aborted"
)

// Submission statuses as stored in the ledger.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Sweep is one launch of a sweep.
type Sweep struct {
	ID      string `json:"id"`
	Backend string `json:"backend"`

	// Spec is the sweep definition as JSON.
	Spec json.RawMessage `json:"spec"`

	State   string `json:"state"`
	Planned int    `json:"planned"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error is the abort reason, empty for completed sweeps.
	Error string `json:"error,omitempty"`
}

// Submission is one point handed to a backend.
type Submission struct {
	SweepID string `json:"sweep_id"`
	Seq     int    `json:"seq"`

	Dataset   string `json:"dataset"`
	Shot      string `json:"shot"`
	Seed      string `json:"seed"`
	Branch    string `json:"branch"`
	Rank      string `json:"rank,omitempty"`
	OutputDir string `json:"output_dir"`

	// Command is the trainer invocation as logged.
	Command     string `json:"command"`
	Fingerprint string `json:"fingerprint"`

	JobName  string `json:"job_name"`
	JobID    string `json:"job_id,omitempty"`
	ExitCode int    `json:"exit_code"`
	Status   string `json:"status"`

	SubmittedAt time.Time `json:"submitted_at"`
}

// Accepted reports whether the backend accepted the submission.
func (s Submission) Accepted() bool {
	return s.Status == StatusAccepted
}
