package model

import "time"

const (
	PhaseIdle       = "idle"
	PhaseFocus      = "focus"
	PhaseShortBreak = "short_break"
	PhaseLongBreak  = "long_break"
)

const (
	DefaultFocusMinutes      = 25
	DefaultShortBreakMinutes = 5
	DefaultLongBreakMinutes  = 15
	DefaultLongBreakEvery    = 4
)

// FocusPreset is an immutable timing template selected before a session
// starts; it cannot change mid-session.
type FocusPreset struct {
	Name              string `json:"name" yaml:"name"`
	FocusMinutes      int    `json:"focusMinutes" yaml:"focus_minutes"`
	ShortBreakMinutes int    `json:"shortBreakMinutes" yaml:"short_break_minutes"`
	LongBreakMinutes  int    `json:"longBreakMinutes" yaml:"long_break_minutes"`
	LongBreakEvery    int    `json:"longBreakEvery" yaml:"long_break_every"`
}

func DefaultPreset() FocusPreset {
	return FocusPreset{
		Name:              "Default",
		FocusMinutes:      DefaultFocusMinutes,
		ShortBreakMinutes: DefaultShortBreakMinutes,
		LongBreakMinutes:  DefaultLongBreakMinutes,
		LongBreakEvery:    DefaultLongBreakEvery,
	}
}

// FocusSession is the live state of one timer run. It is owned exclusively
// by the timer instance that created it; other components act on copies.
type FocusSession struct {
	ID                   string      `json:"id"`
	TaskID               *string     `json:"taskId,omitempty"`
	Preset               FocusPreset `json:"preset"`
	StartedAt            time.Time   `json:"startedAt"`
	CurrentPhase         string      `json:"currentPhase"`
	CompletedPomodoros   int         `json:"completedPomodoros"`
	TotalFocusMinutes    int         `json:"totalFocusMinutes"`
	Fingerprint          string      `json:"fingerprint"`
	TimeRemainingSeconds int         `json:"timeRemainingSeconds"`
	IsActive             bool        `json:"isActive"`
}

// StreakState is persisted per user and mutated only by a successfully
// validated completion.
type StreakState struct {
	UserID          string     `json:"userId"`
	StreakDays      int        `json:"streakDays"`
	LastCompletedAt *time.Time `json:"lastCompletedAt,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CompletionSubmission is the wire payload posted to the persistence
// collaborator when a Focus phase completes. The fingerprint doubles as
// tamper check and idempotency key.
type CompletionSubmission struct {
	SessionID    string    `json:"sessionId"`
	Fingerprint  string    `json:"fingerprint"`
	StartedAt    time.Time `json:"startedAt"`
	FocusMinutes int       `json:"focusMinutes"`
}

// CompletionResult is the collaborator's answer to a submission. Duplicate
// submissions return the originally stored outcome with Duplicate set.
type CompletionResult struct {
	Success      bool        `json:"success"`
	Duplicate    bool        `json:"duplicate,omitempty"`
	PointsEarned int         `json:"pointsEarned"`
	NewStreak    int         `json:"newStreak"`
	TreesGrown   []GrownTree `json:"treesGrown"`
}

// CompletionRecord is one row of the reward ledger. The fingerprint column
// is unique, which is what makes duplicate submissions no-ops.
type CompletionRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	SessionID    string    `json:"sessionId"`
	Fingerprint  string    `json:"fingerprint"`
	StartedAt    time.Time `json:"startedAt"`
	FocusMinutes int       `json:"focusMinutes"`
	PointsEarned int       `json:"pointsEarned"`
	StreakDays   int       `json:"streakDays"`
	CreatedAt    time.Time `json:"createdAt"`
}
