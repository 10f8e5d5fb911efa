// Package timer runs a focus session through its Pomodoro phases. One
// Timer owns at most one live session; all mutation goes through its
// methods and callbacks receive value snapshots only.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"forestfocus/internal/fingerprint"
	"forestfocus/internal/model"
)

var (
	ErrSessionActive = errors.New("timer: a session is already in progress")
	ErrInvalidPreset = errors.New("timer: preset durations must be positive")
)

type EventType string

const (
	EventCompleted EventType = "completed"
	EventAborted   EventType = "aborted"
	EventSkipped   EventType = "skipped"
)

// Event describes one phase transition. Phase is the phase that just
// ended; Session is the state after the transition (for aborted events,
// the final state before the session was destroyed).
type Event struct {
	Type    EventType
	Phase   string
	Session model.FocusSession
}

type TickFunc func(model.FocusSession)
type PhaseChangeFunc func(Event)

type Timer struct {
	mu      sync.Mutex
	now     func() time.Time
	session *model.FocusSession
	onTick  TickFunc
	onPhase PhaseChangeFunc
}

// NewTimer builds a timer around the given clock. Pass time.Now outside
// of tests.
func NewTimer(clock func() time.Time) *Timer {
	if clock == nil {
		clock = time.Now
	}
	return &Timer{now: clock}
}

func (t *Timer) OnTick(fn TickFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTick = fn
}

func (t *Timer) OnPhaseChange(fn PhaseChangeFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPhase = fn
}

// Start creates a session in the Focus phase. There is no automatic
// takeover: callers must Stop any prior session first.
func (t *Timer) Start(taskID *string, preset model.FocusPreset) (*model.FocusSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil {
		return nil, ErrSessionActive
	}
	if preset.FocusMinutes <= 0 || preset.ShortBreakMinutes <= 0 || preset.LongBreakMinutes <= 0 || preset.LongBreakEvery <= 0 {
		return nil, ErrInvalidPreset
	}

	now := t.now().UTC()
	id := uuid.NewString()
	session := model.FocusSession{
		ID:                   id,
		TaskID:               taskID,
		Preset:               preset,
		StartedAt:            now,
		CurrentPhase:         model.PhaseFocus,
		Fingerprint:          fingerprint.ForSession(id, now),
		TimeRemainingSeconds: preset.FocusMinutes * 60,
		IsActive:             true,
	}
	t.session = &session

	snapshot := session
	return &snapshot, nil
}

// Tick advances the countdown by one second. Ticks only occur while the
// session is active, so a paused session can never hit zero.
func (t *Timer) Tick() {
	t.mu.Lock()
	if t.session == nil || !t.session.IsActive {
		t.mu.Unlock()
		return
	}

	t.session.TimeRemainingSeconds--
	snapshot := *t.session
	onTick := t.onTick

	var event *Event
	if t.session.TimeRemainingSeconds <= 0 {
		event = t.advanceLocked(EventCompleted)
	}
	t.mu.Unlock()

	if onTick != nil {
		onTick(snapshot)
	}
	t.emit(event)
}

// Pause halts ticking but preserves the remaining time. No-op without a
// session.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return
	}
	t.session.IsActive = false
}

func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return
	}
	t.session.IsActive = true
}

// Skip force-advances exactly as an expiry would, but raises a skipped
// event and never credits focus minutes for a skipped Focus phase.
func (t *Timer) Skip() {
	t.mu.Lock()
	if t.session == nil {
		t.mu.Unlock()
		return
	}
	event := t.advanceLocked(EventSkipped)
	t.mu.Unlock()
	t.emit(event)
}

// Stop discards the session entirely and raises an aborted event.
func (t *Timer) Stop() {
	t.mu.Lock()
	if t.session == nil {
		t.mu.Unlock()
		return
	}
	final := *t.session
	phase := final.CurrentPhase
	t.session = nil
	t.mu.Unlock()

	t.emit(&Event{Type: EventAborted, Phase: phase, Session: final})
}

// Phase reports the current phase, PhaseIdle when no session exists.
func (t *Timer) Phase() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return model.PhaseIdle
	}
	return t.session.CurrentPhase
}

// Session returns a snapshot of the live session, or nil.
func (t *Timer) Session() *model.FocusSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return nil
	}
	snapshot := *t.session
	return &snapshot
}

// Run drives Tick once per second until ctx is canceled or the session is
// stopped. It returns immediately when no session exists.
func (t *Timer) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.Session() == nil {
				return
			}
			t.Tick()
		}
	}
}

// advanceLocked moves to the next phase and returns the transition event.
// Callers hold t.mu and deliver the event after unlocking.
func (t *Timer) advanceLocked(eventType EventType) *Event {
	s := t.session
	ended := s.CurrentPhase

	if ended == model.PhaseFocus {
		s.CompletedPomodoros++
		if eventType == EventCompleted {
			s.TotalFocusMinutes += s.Preset.FocusMinutes
		}
		if s.CompletedPomodoros%s.Preset.LongBreakEvery == 0 {
			s.CurrentPhase = model.PhaseLongBreak
			s.TimeRemainingSeconds = s.Preset.LongBreakMinutes * 60
		} else {
			s.CurrentPhase = model.PhaseShortBreak
			s.TimeRemainingSeconds = s.Preset.ShortBreakMinutes * 60
		}
	} else {
		s.CurrentPhase = model.PhaseFocus
		s.TimeRemainingSeconds = s.Preset.FocusMinutes * 60
	}

	return &Event{Type: eventType, Phase: ended, Session: *s}
}

func (t *Timer) emit(event *Event) {
	if event == nil {
		return
	}
	t.mu.Lock()
	onPhase := t.onPhase
	t.mu.Unlock()
	if onPhase != nil {
		onPhase(*event)
	}
}
