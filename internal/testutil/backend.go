package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/roach88/sweep/internal/backend"
	"github.com/roach88/sweep/internal/sweep"
)

// Call is one submission seen by a FakeBackend.
type Call struct {
	Flags    string
	Identity sweep.Identity
}

// FakeBackend is a scripted execution backend.
//
// Submissions are answered from Codes in order; once Codes is exhausted
// every submission exits 0. Accepted submissions get job ids starting at
// 1000.
//
// Thread-safety: FakeBackend is safe for concurrent use via internal mutex.
type FakeBackend struct {
	mu    sync.Mutex
	kind  backend.Kind
	codes []int
	calls []Call

	// OnSubmit, when set, runs before each submission is answered. It
	// receives the zero-based call number.
	OnSubmit func(n int, flags string, id sweep.Identity)
}

// NewFakeBackend creates a slurm-kind fake answering with codes.
func NewFakeBackend(codes ...int) *FakeBackend {
	return &FakeBackend{kind: backend.KindSlurm, codes: codes}
}

// WithKind sets the kind the fake reports.
func (f *FakeBackend) WithKind(k backend.Kind) *FakeBackend {
	f.kind = k
	return f
}

// Kind implements backend.Backend.
func (f *FakeBackend) Kind() backend.Kind {
	return f.kind
}

// CommandLine implements backend.Backend.
func (f *FakeBackend) CommandLine(flags string) string {
	return "train" + flags
}

// Submit implements backend.Backend. A done ctx fails the submission.
func (f *FakeBackend) Submit(ctx context.Context, flags string, id sweep.Identity) (backend.Result, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, Call{Flags: flags, Identity: id})
	code := 0
	if n < len(f.codes) {
		code = f.codes[n]
	}
	hook := f.OnSubmit
	f.mu.Unlock()

	if hook != nil {
		hook(n, flags, id)
	}
	if err := ctx.Err(); err != nil {
		return backend.Result{Status: backend.StatusRejected, ExitCode: -1}, err
	}

	res := backend.Result{Status: backend.StatusAccepted, ExitCode: code}
	if code != 0 {
		res.Status = backend.StatusRejected
		return res, nil
	}
	res.JobID = strconv.Itoa(1000 + n)
	return res, nil
}

// Calls returns a copy of the submissions seen so far.
func (f *FakeBackend) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// JobNames returns the job names of the submissions seen so far.
func (f *FakeBackend) JobNames() []string {
	calls := f.Calls()
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Identity.JobName
	}
	return names
}
