// Package orchestrator drives a sweep from plan to submission.
//
// A sweep runs in two phases. Planning expands every point, resolves
// over-LoRA chains against trainer state already on disk and rejects plans
// in which two points share an output directory. Nothing is submitted until
// planning succeeds.
//
// Submission then walks the plan in order, one point at a time. The first
// rejected submission aborts the sweep: the failing command line is logged,
// later points are never submitted and jobs already handed to the scheduler
// are left alone. There are no retries.
//
// States move Ready → Running → Completed or Aborted. An Orchestrator runs
// once.
package orchestrator
