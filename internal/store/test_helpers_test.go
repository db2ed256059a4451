package store

import (
	"path/filepath"
	"testing"
	"time"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSweep creates a running sweep with minimal required fields.
func createTestSweep(id string) Sweep {
	return Sweep{
		ID:        id,
		Backend:   "slurm",
		Spec:      []byte(`{"seeds":["1338"]}`),
		Planned:   3,
		StartedAt: testEpoch,
	}
}

// createTestSubmission creates an accepted submission with minimal required fields.
func createTestSubmission(sweepID string, seq int, fingerprint string) Submission {
	return Submission{
		SweepID:     sweepID,
		Seq:         seq,
		Dataset:     "detection-datasets/coco",
		Shot:        "10",
		Seed:        "1338",
		Branch:      "nolora",
		OutputDir:   "runs/diffusiondet/coco/nolora/10/1338",
		Command:     "python -u run_object_detection.py --seed 1338",
		Fingerprint: fingerprint,
		JobName:     "10nl1338",
		JobID:       "42",
		ExitCode:    0,
		Status:      StatusAccepted,
		SubmittedAt: testEpoch.Add(time.Duration(seq) * time.Minute),
	}
}
