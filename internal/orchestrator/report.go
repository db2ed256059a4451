package orchestrator

import (
	"github.com/roach88/sweep/internal/backend"
	"github.com/roach88/sweep/internal/sweep"
)

// Report summarizes a sweep run.
type Report struct {
	SweepID string       `json:"sweep_id"`
	Backend backend.Kind `json:"backend"`
	State   State        `json:"state"`

	Planned   int `json:"planned"`
	Submitted int `json:"submitted"`
	Skipped   int `json:"skipped"`

	// Submissions lists every attempted submission in order, including the
	// failing one.
	Submissions []Submission `json:"submissions"`

	// Failed is the submission that aborted the sweep, if any.
	Failed *Submission `json:"failed,omitempty"`
}

// Remaining returns the number of planned points that were neither
// submitted nor skipped.
func (r *Report) Remaining() int {
	n := r.Planned - r.Submitted - r.Skipped
	if r.Failed != nil {
		n--
	}
	return n
}

// Submission is one attempted submission.
type Submission struct {
	Index     int          `json:"index"`
	Dataset   string       `json:"dataset"`
	Shot      string       `json:"shot"`
	Seed      string       `json:"seed"`
	Branch    sweep.Branch `json:"branch"`
	Rank      string       `json:"rank,omitempty"`
	OutputDir string       `json:"output_dir"`

	JobName     string `json:"job_name"`
	JobID       string `json:"job_id,omitempty"`
	CommandLine string `json:"command"`
	Fingerprint string `json:"fingerprint"`

	ExitCode int            `json:"exit_code"`
	Status   backend.Status `json:"status"`
}
