package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"
)

func TestBeginSweep_GetSweep(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	if err := s.BeginSweep(ctx, createTestSweep("sweep-1")); err != nil {
		t.Fatalf("BeginSweep() failed: %v", err)
	}

	got, err := s.GetSweep(ctx, "sweep-1")
	if err != nil {
		t.Fatalf("GetSweep() failed: %v", err)
	}
	if got.State != StateRunning {
		t.Errorf("State = %q, want %q", got.State, StateRunning)
	}
	if got.Backend != "slurm" || got.Planned != 3 {
		t.Errorf("got backend=%q planned=%d", got.Backend, got.Planned)
	}
	if string(got.Spec) != `{"seeds":["1338"]}` {
		t.Errorf("Spec = %s", got.Spec)
	}
	if !got.StartedAt.Equal(testEpoch) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, testEpoch)
	}
	if got.FinishedAt != nil {
		t.Errorf("FinishedAt = %v, want nil", got.FinishedAt)
	}
}

func TestBeginSweep_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	if err := s.BeginSweep(ctx, createTestSweep("sweep-1")); err != nil {
		t.Fatalf("BeginSweep() failed: %v", err)
	}
	if err := s.BeginSweep(ctx, createTestSweep("sweep-1")); err == nil {
		t.Error("expected duplicate sweep id to fail")
	}
}

func TestGetSweep_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetSweep(t.Context(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetSweep() error = %v, want sql.ErrNoRows", err)
	}
}

func TestFinishSweep(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	if err := s.BeginSweep(ctx, createTestSweep("sweep-1")); err != nil {
		t.Fatalf("BeginSweep() failed: %v", err)
	}
	finished := testEpoch.Add(time.Hour)
	if err := s.FinishSweep(ctx, "sweep-1", StateAborted, finished, "error running command: sbatch"); err != nil {
		t.Fatalf("FinishSweep() failed: %v", err)
	}

	got, err := s.GetSweep(ctx, "sweep-1")
	if err != nil {
		t.Fatalf("GetSweep() failed: %v", err)
	}
	if got.State != StateAborted {
		t.Errorf("State = %q, want %q", got.State, StateAborted)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
	}
	if got.Error != "error running command: sbatch" {
		t.Errorf("Error = %q", got.Error)
	}
}

func TestFinishSweep_Completed_NoError(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	if err := s.BeginSweep(ctx, createTestSweep("sweep-1")); err != nil {
		t.Fatalf("BeginSweep() failed: %v", err)
	}
	if err := s.FinishSweep(ctx, "sweep-1", StateCompleted, testEpoch, ""); err != nil {
		t.Fatalf("FinishSweep() failed: %v", err)
	}

	got, err := s.GetSweep(ctx, "sweep-1")
	if err != nil {
		t.Fatalf("GetSweep() failed: %v", err)
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want empty", got.Error)
	}
}

func TestFinishSweep_Unknown(t *testing.T) {
	s := createTestStore(t)

	err := s.FinishSweep(t.Context(), "missing", StateCompleted, testEpoch, "")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("FinishSweep() error = %v, want sql.ErrNoRows", err)
	}
}

func TestListSweeps_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	for i, id := range []string{"sweep-a", "sweep-b", "sweep-c"} {
		sw := createTestSweep(id)
		sw.StartedAt = testEpoch.Add(time.Duration(i) * time.Hour)
		if err := s.BeginSweep(ctx, sw); err != nil {
			t.Fatalf("BeginSweep(%s) failed: %v", id, err)
		}
	}

	all, err := s.ListSweeps(ctx, 0)
	if err != nil {
		t.Fatalf("ListSweeps() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	want := []string{"sweep-c", "sweep-b", "sweep-a"}
	for i, sw := range all {
		if sw.ID != want[i] {
			t.Errorf("sweeps[%d] = %q, want %q", i, sw.ID, want[i])
		}
	}

	limited, err := s.ListSweeps(ctx, 1)
	if err != nil {
		t.Fatalf("ListSweeps(1) failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "sweep-c" {
		t.Errorf("ListSweeps(1) = %+v", limited)
	}
}

func TestListSweeps_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	sweeps, err := s.ListSweeps(t.Context(), 0)
	if err != nil {
		t.Fatalf("ListSweeps() failed: %v", err)
	}
	if sweeps == nil {
		t.Error("ListSweeps() returned nil, want empty slice")
	}
}

func TestRecordSubmission_ListInSeqOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	if err := s.BeginSweep(ctx, createTestSweep("sweep-1")); err != nil {
		t.Fatalf("BeginSweep() failed: %v", err)
	}
	for _, seq := range []int{2, 0, 1} {
		sub := createTestSubmission("sweep-1", seq, "fp")
		if seq == 2 {
			sub.Status = StatusRejected
			sub.ExitCode = 1
			sub.JobID = ""
		}
		if err := s.RecordSubmission(ctx, sub); err != nil {
			t.Fatalf("RecordSubmission(%d) failed: %v", seq, err)
		}
	}

	subs, err := s.ListSubmissions(ctx, "sweep-1")
	if err != nil {
		t.Fatalf("ListSubmissions() failed: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("len = %d, want 3", len(subs))
	}
	for i, sub := range subs {
		if sub.Seq != i {
			t.Errorf("subs[%d].Seq = %d", i, sub.Seq)
		}
	}

	last := subs[2]
	if last.Accepted() || last.ExitCode != 1 || last.JobID != "" {
		t.Errorf("last submission = %+v, want rejected with exit 1", last)
	}
	first := subs[0]
	if first.Command != "python -u run_object_detection.py --seed 1338" {
		t.Errorf("Command = %q", first.Command)
	}
	if !first.SubmittedAt.Equal(testEpoch) {
		t.Errorf("SubmittedAt = %v, want %v", first.SubmittedAt, testEpoch)
	}
}

func TestListSubmissions_UnknownSweep(t *testing.T) {
	s := createTestStore(t)

	subs, err := s.ListSubmissions(t.Context(), "missing")
	if err != nil {
		t.Fatalf("ListSubmissions() failed: %v", err)
	}
	if subs == nil || len(subs) != 0 {
		t.Errorf("ListSubmissions() = %v, want empty slice", subs)
	}
}

func TestHasAccepted(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	if err := s.BeginSweep(ctx, createTestSweep("sweep-1")); err != nil {
		t.Fatalf("BeginSweep() failed: %v", err)
	}
	rejected := createTestSubmission("sweep-1", 0, "fp-rejected")
	rejected.Status = StatusRejected
	if err := s.RecordSubmission(ctx, rejected); err != nil {
		t.Fatalf("RecordSubmission() failed: %v", err)
	}
	if err := s.RecordSubmission(ctx, createTestSubmission("sweep-1", 1, "fp-accepted")); err != nil {
		t.Fatalf("RecordSubmission() failed: %v", err)
	}

	tests := []struct {
		fingerprint string
		want        bool
	}{
		{"fp-accepted", true},
		{"fp-rejected", false},
		{"fp-unknown", false},
	}
	for _, tt := range tests {
		got, err := s.HasAccepted(ctx, tt.fingerprint)
		if err != nil {
			t.Fatalf("HasAccepted(%q) failed: %v", tt.fingerprint, err)
		}
		if got != tt.want {
			t.Errorf("HasAccepted(%q) = %v, want %v", tt.fingerprint, got, tt.want)
		}
	}
}

func TestMarshalJSON_NoHTMLEscape(t *testing.T) {
	data, err := MarshalJSON(map[string]any{"cmd": "a && b <c>"})
	if err != nil {
		t.Fatalf("MarshalJSON() failed: %v", err)
	}
	if string(data) != `{"cmd":"a && b <c>"}` {
		t.Errorf("MarshalJSON() = %s", data)
	}
}
