// Package session glues the focus core together on the client side: the
// timer's phase events are checked against the integrity guard, packaged
// into completion submissions, and either delivered immediately or handed
// to the offline reconciler for eventual replay.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"forestfocus/internal/integrity"
	"forestfocus/internal/model"
	"forestfocus/internal/queue"
	"forestfocus/internal/timer"
)

// Submitter is the persistence collaborator boundary (§ completion
// submission). Delivery failures must be wrapped in *queue.DeliveryError
// so the reconciler can classify them.
type Submitter interface {
	Submit(ctx context.Context, sub model.CompletionSubmission) (*model.CompletionResult, error)
}

// Status is the user-visible outcome of the most recent completion
// attempt. Integrity and delivery problems surface here, never as panics.
type Status struct {
	Credited bool   `json:"credited"`
	Queued   bool   `json:"queued"`
	Rejected bool   `json:"rejected"`
	Reason   string `json:"reason,omitempty"`
	Result   *model.CompletionResult
}

type Coordinator struct {
	mu               sync.Mutex
	timer            *timer.Timer
	guard            *integrity.Guard
	reconciler       *queue.Reconciler
	submitter        Submitter
	lastStatus       Status
	ticksSinceSample int
}

// NewCoordinator wires timer, guard, queue store and submitter into one
// lifecycle. The caller owns construction and teardown; nothing here is a
// package-level singleton.
func NewCoordinator(tm *timer.Timer, guard *integrity.Guard, store queue.Store, submitter Submitter, clock func() time.Time) *Coordinator {
	c := &Coordinator{
		timer:     tm,
		guard:     guard,
		submitter: submitter,
	}
	c.reconciler = queue.NewReconciler(store, c.deliverQueued, clock)

	tm.OnTick(func(model.FocusSession) { c.sampleOnTick() })
	tm.OnPhaseChange(func(e timer.Event) {
		if e.Type == timer.EventCompleted && e.Phase == model.PhaseFocus {
			c.handleFocusCompleted(e)
		}
		if e.Type == timer.EventAborted {
			c.guard.StopSession()
		}
	})
	return c
}

func (c *Coordinator) Timer() *timer.Timer           { return c.timer }
func (c *Coordinator) Guard() *integrity.Guard       { return c.guard }
func (c *Coordinator) Reconciler() *queue.Reconciler { return c.reconciler }

// Start begins a session on both the timer and the guard.
func (c *Coordinator) Start(taskID *string, preset model.FocusPreset) (*model.FocusSession, error) {
	session, err := c.timer.Start(taskID, preset)
	if err != nil {
		return nil, err
	}
	c.guard.StartSession()
	c.resetSampleCounter()
	return session, nil
}

// Stop tears the session down symmetrically: the timer raises aborted and
// the guard stops sampling.
func (c *Coordinator) Stop() {
	c.timer.Stop()
}

func (c *Coordinator) Pause() { c.timer.Pause() }

// Resume rebaselines the guard's sampler: the wall time that passed while
// paused is not a clock jump.
func (c *Coordinator) Resume() {
	c.timer.Resume()
	c.guard.Rebaseline()
	c.resetSampleCounter()
}

func (c *Coordinator) Skip() { c.timer.Skip() }

// SetVisible forwards host visibility signals to the guard.
func (c *Coordinator) SetVisible(visible bool) { c.guard.SetVisible(visible) }

// SetOnline forwards connectivity signals; coming back online drains the
// queue.
func (c *Coordinator) SetOnline(ctx context.Context, online bool) error {
	return c.reconciler.SetOnline(ctx, online)
}

// Run drives the timer's tick loop until ctx is canceled or the session
// stops.
func (c *Coordinator) Run(ctx context.Context) { c.timer.Run(ctx) }

// LastStatus returns the outcome of the most recent completion attempt.
func (c *Coordinator) LastStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

// handleFocusCompleted is the §2 data flow: guard check, then submit or
// queue. A failed integrity check blocks crediting only; the timer keeps
// running its break phases.
func (c *Coordinator) handleFocusCompleted(e timer.Event) {
	check := c.guard.Check()
	if !check.IsValid {
		c.setStatus(Status{Rejected: true, Reason: check.Reason})
		return
	}

	sub := model.CompletionSubmission{
		SessionID:    e.Session.ID,
		Fingerprint:  e.Session.Fingerprint,
		StartedAt:    e.Session.StartedAt,
		FocusMinutes: e.Session.TotalFocusMinutes,
	}

	ctx := context.Background()
	if !c.reconciler.Online() {
		c.enqueue(ctx, sub, "offline")
		return
	}

	result, err := c.submitter.Submit(ctx, sub)
	if err == nil {
		c.setStatus(Status{Credited: true, Result: result})
		return
	}

	var de *queue.DeliveryError
	if errors.As(err, &de) && de.Retryable {
		c.enqueue(ctx, sub, err.Error())
		return
	}
	c.setStatus(Status{Rejected: true, Reason: err.Error()})
}

func (c *Coordinator) enqueue(ctx context.Context, sub model.CompletionSubmission, reason string) {
	if _, err := c.reconciler.Enqueue(ctx, model.MutationKindCompletion, sub.Fingerprint, sub); err != nil {
		c.setStatus(Status{Rejected: true, Reason: err.Error()})
		return
	}
	c.setStatus(Status{Queued: true, Reason: reason})
}

// deliverQueued replays one buffered submission. The server treats an
// already-applied fingerprint as a no-op success, which is what makes
// repeated drains safe.
func (c *Coordinator) deliverQueued(ctx context.Context, m model.PendingMutation) error {
	var sub model.CompletionSubmission
	if err := json.Unmarshal(m.Payload, &sub); err != nil {
		return queue.PermanentError(err)
	}
	_, err := c.submitter.Submit(ctx, sub)
	return err
}

// sampleOnTick drives the guard's periodic sampling off the tick stream:
// one sample per configured interval of ticking. Ticks stop while paused,
// so no samples fire then.
func (c *Coordinator) sampleOnTick() {
	interval := c.guard.Config().SampleIntervalSeconds
	if interval <= 0 {
		interval = 1
	}

	c.mu.Lock()
	c.ticksSinceSample++
	due := c.ticksSinceSample >= interval
	if due {
		c.ticksSinceSample = 0
	}
	c.mu.Unlock()

	if due {
		c.guard.Sample()
	}
}

func (c *Coordinator) resetSampleCounter() {
	c.mu.Lock()
	c.ticksSinceSample = 0
	c.mu.Unlock()
}

func (c *Coordinator) setStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastStatus = s
}
