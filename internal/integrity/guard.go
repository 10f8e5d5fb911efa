// Package integrity watches a running focus session for clock manipulation
// and prolonged backgrounding. The guard is advisory: a violation gates
// reward crediting downstream but never touches the timer itself.
package integrity

import (
	"sync"
	"time"
)

const (
	ReasonClockJump          = "clock_jump"
	ReasonBackgroundExceeded = "background_exceeded"
)

type Config struct {
	RequireForeground        bool `json:"requireForeground"`
	DetectClockJumps         bool `json:"detectClockJumps"`
	MaxClockJumpSeconds      int  `json:"maxClockJumpSeconds"`
	MaxBackgroundTimeSeconds int  `json:"maxBackgroundTimeSeconds"`
	// SampleIntervalSeconds is the cadence Sample is driven at; deviation
	// from it beyond MaxClockJumpSeconds reads as a clock jump.
	SampleIntervalSeconds int `json:"sampleIntervalSeconds"`
}

func DefaultConfig() Config {
	return Config{
		RequireForeground:        true,
		DetectClockJumps:         true,
		MaxClockJumpSeconds:      300,
		MaxBackgroundTimeSeconds: 60,
		SampleIntervalSeconds:    30,
	}
}

type Result struct {
	IsValid               bool   `json:"isValid"`
	Reason                string `json:"reason,omitempty"`
	BackgroundTimeSeconds int    `json:"backgroundTimeSeconds,omitempty"`
	ClockJumpSeconds      int    `json:"clockJumpSeconds,omitempty"`
}

// State holds the wall-clock samples for the session being watched. It is
// derived state only and never persisted.
type State struct {
	SessionStartTime time.Time
	LastSampleTime   time.Time
	BackgroundSince  *time.Time
}

type Guard struct {
	mu        sync.Mutex
	cfg       Config
	now       func() time.Time
	active    bool
	state     State
	violation *Result
}

// NewGuard builds a guard around the given clock. Pass time.Now outside of
// tests.
func NewGuard(cfg Config, clock func() time.Time) *Guard {
	if clock == nil {
		clock = time.Now
	}
	return &Guard{cfg: cfg, now: clock}
}

func (g *Guard) StartSession() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	g.active = true
	g.violation = nil
	g.state = State{SessionStartTime: now, LastSampleTime: now}
}

func (g *Guard) StopSession() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = false
	g.violation = nil
	g.state = State{}
}

// UpdateConfig replaces the thresholds; the change applies to subsequent
// checks only.
func (g *Guard) UpdateConfig(cfg Config) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
}

func (g *Guard) Config() Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg
}

// SetVisible feeds host visibility transitions to the guard. Returning to
// the foreground resets the background clock to nil, so the next hide
// starts counting from scratch.
func (g *Guard) SetVisible(visible bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return
	}

	now := g.now()
	if visible {
		if g.state.BackgroundSince != nil {
			g.recordDwellLocked(now)
			g.state.BackgroundSince = nil
		}
		return
	}
	if g.state.BackgroundSince == nil {
		g.state.BackgroundSince = &now
	}
}

// Sample takes one wall-clock sample. Drive it at the configured cadence
// while the session ticks; the clock-jump detector compares the distance
// between consecutive samples against that cadence.
func (g *Guard) Sample() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return
	}
	now := g.now()
	g.sampleLocked(now)
	g.recordDwellLocked(now)
}

// Rebaseline resets the sampling reference point without evaluating a
// jump. Call it when ticking resumes after a pause so the paused wall
// time is not read as a clock jump.
func (g *Guard) Rebaseline() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return
	}
	g.state.LastSampleTime = g.now()
}

// Check reports whether the session is still considered genuine. It is
// callable at any cadence: it evaluates background dwell but takes no
// clock sample, so elapsed time since the last Sample is never read as a
// jump. Once a violation is recorded it sticks until StopSession.
func (g *Guard) Check() Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active {
		return Result{IsValid: true}
	}

	g.recordDwellLocked(g.now())

	if g.violation != nil {
		return *g.violation
	}
	return Result{IsValid: true}
}

// sampleLocked detects clock jumps: the distance between two samples
// should be close to the configured cadence; a large deviation means the
// system clock moved under us.
func (g *Guard) sampleLocked(now time.Time) {
	elapsed := now.Sub(g.state.LastSampleTime)
	g.state.LastSampleTime = now

	if !g.cfg.DetectClockJumps || g.violation != nil {
		return
	}

	deviation := elapsed - time.Duration(g.cfg.SampleIntervalSeconds)*time.Second
	if deviation < 0 {
		deviation = -deviation
	}
	if int(deviation.Seconds()) > g.cfg.MaxClockJumpSeconds {
		g.violation = &Result{
			IsValid:          false,
			Reason:           ReasonClockJump,
			ClockJumpSeconds: int(deviation.Seconds()),
		}
	}
}

func (g *Guard) recordDwellLocked(now time.Time) {
	if !g.cfg.RequireForeground || g.violation != nil || g.state.BackgroundSince == nil {
		return
	}
	dwell := int(now.Sub(*g.state.BackgroundSince).Seconds())
	if dwell > g.cfg.MaxBackgroundTimeSeconds {
		g.violation = &Result{
			IsValid:               false,
			Reason:                ReasonBackgroundExceeded,
			BackgroundTimeSeconds: dwell,
		}
	}
}
