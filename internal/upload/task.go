// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"context"
	"sync/atomic"

	"github.com/pdiddy/sonifyreads/pkg/types"
)

// Task is an upload running in the background. It resolves to exactly one
// Outcome and can be canceled while in flight.
type Task struct {
	cancel   context.CancelFunc
	updates  chan int
	progress atomic.Int32
	done     chan struct{}
	outcome  types.Outcome
}

// Submit starts an upload and returns immediately. The request is consumed
// by the task; callers must not read req.File afterwards.
func (c *Client) Submit(ctx context.Context, req types.UploadRequest) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		// Percentages are strictly increasing in [0, 100], so 101 slots
		// hold every update an attempt can produce.
		updates: make(chan int, 101),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()
		t.outcome = c.Upload(ctx, req, t.report)
		close(t.updates)
	}()
	return t
}

func (t *Task) report(percent int) {
	t.progress.Store(int32(percent))
	t.updates <- percent
}

// Updates delivers each progress percentage. It is closed when the task
// has finished.
func (t *Task) Updates() <-chan int {
	return t.updates
}

// Progress returns the latest reported percentage.
func (t *Task) Progress() int {
	return int(t.progress.Load())
}

// Done is closed once the outcome is available.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes and returns its outcome.
func (t *Task) Wait() types.Outcome {
	<-t.done
	return t.outcome
}

// Cancel aborts the upload. A task that already finished is unaffected.
func (t *Task) Cancel() {
	t.cancel()
}
