package queue

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"forestfocus/internal/model"
)

// DeliveryError classifies a failed delivery attempt. Retryable failures
// (network down, server 5xx) keep the entry pending; anything else is
// terminal.
type DeliveryError struct {
	Retryable bool
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (retryable=%t): %v", e.Retryable, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func RetryableError(err error) *DeliveryError {
	return &DeliveryError{Retryable: true, Err: err}
}

func PermanentError(err error) *DeliveryError {
	return &DeliveryError{Retryable: false, Err: err}
}

// DeliverFunc attempts to land one mutation server-side. Implementations
// must wrap failures in *DeliveryError so Drain can classify them.
type DeliverFunc func(ctx context.Context, m model.PendingMutation) error

// Reconciler owns the durable queue and replays it when connectivity
// returns. Every payload carries an idempotency key, so a replay whose
// effect already landed is a safe no-op server-side.
type Reconciler struct {
	mu      sync.Mutex
	store   Store
	deliver DeliverFunc
	now     func() time.Time
	entropy io.Reader
	online  bool
}

func NewReconciler(store Store, deliver DeliverFunc, clock func() time.Time) *Reconciler {
	if clock == nil {
		clock = time.Now
	}
	return &Reconciler{
		store:   store,
		deliver: deliver,
		now:     clock,
		entropy: ulid.Monotonic(rand.Reader, 0),
		online:  true,
	}
}

// Enqueue buffers a mutation for later delivery. A key already waiting in
// the queue is not enqueued twice; the existing entry's id is returned.
func (r *Reconciler) Enqueue(ctx context.Context, kind, idempotencyKey string, payload any) (string, error) {
	existing, err := r.store.FindByIdempotencyKey(ctx, idempotencyKey)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("lookup queued mutation: %w", err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal mutation payload: %w", err)
	}

	now := r.now().UTC()
	r.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(now), r.entropy).String()
	r.mu.Unlock()

	m := model.PendingMutation{
		ID:             id,
		Kind:           kind,
		IdempotencyKey: idempotencyKey,
		Payload:        raw,
		Status:         model.MutationPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.store.Insert(ctx, m); err != nil {
		return "", fmt.Errorf("insert mutation: %w", err)
	}
	return id, nil
}

func (r *Reconciler) ListPending(ctx context.Context) ([]model.PendingMutation, error) {
	return r.store.ListPending(ctx)
}

func (r *Reconciler) MarkStatus(ctx context.Context, id, status, lastError string) error {
	return r.store.UpdateStatus(ctx, id, status, lastError, r.now().UTC())
}

// Drain delivers every pending mutation in creation order. The previous
// entry must reach a terminal status before the next is attempted, so the
// whole drain stops on the first failure: retryable entries go back to
// pending, anything else is marked failed and left for user-visible retry.
func (r *Reconciler) Drain(ctx context.Context) error {
	pending, err := r.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending mutations: %w", err)
	}

	for _, m := range pending {
		if err := r.store.UpdateStatus(ctx, m.ID, model.MutationProcessing, "", r.now().UTC()); err != nil {
			return fmt.Errorf("mark processing: %w", err)
		}

		deliverErr := r.deliver(ctx, m)
		if deliverErr == nil {
			if err := r.store.UpdateStatus(ctx, m.ID, model.MutationCompleted, "", r.now().UTC()); err != nil {
				return fmt.Errorf("mark completed: %w", err)
			}
			continue
		}

		status := model.MutationFailed
		var de *DeliveryError
		if errors.As(deliverErr, &de) && de.Retryable {
			status = model.MutationPending
		}
		if err := r.store.UpdateStatus(ctx, m.ID, status, deliverErr.Error(), r.now().UTC()); err != nil {
			return fmt.Errorf("mark %s: %w", status, err)
		}
		return deliverErr
	}
	return nil
}

// SetOnline records a connectivity transition; coming back online triggers
// a drain.
func (r *Reconciler) SetOnline(ctx context.Context, online bool) error {
	r.mu.Lock()
	wasOnline := r.online
	r.online = online
	r.mu.Unlock()

	if online && !wasOnline {
		return r.Drain(ctx)
	}
	return nil
}

func (r *Reconciler) Online() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online
}
