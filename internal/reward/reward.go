// Package reward converts validated focus time into points and streak
// state. Every function here is pure; callers are responsible for checking
// session integrity and fingerprint match before invoking it.
package reward

import (
	"fmt"
	"math"
	"time"

	"forestfocus/internal/model"
)

// MaxStreakMultiplier caps the bonus regardless of streak length.
const MaxStreakMultiplier = 2.0

// streakStepPerDay is the multiplier growth per consecutive day. The cap is
// reached after ten days.
const streakStepPerDay = 0.1

type Outcome struct {
	BasePoints       int     `json:"basePoints"`
	StreakMultiplier float64 `json:"streakMultiplier"`
	FinalPoints      int     `json:"finalPoints"`
	Breakdown        string  `json:"breakdown"`
}

// ComputePoints awards ceil(focusMinutes/2) base points scaled by the
// streak multiplier.
func ComputePoints(focusMinutes, streakDays int) Outcome {
	if focusMinutes < 0 {
		focusMinutes = 0
	}
	base := (focusMinutes + 1) / 2
	multiplier := Multiplier(streakDays)
	final := int(math.Round(float64(base) * multiplier))

	return Outcome{
		BasePoints:       base,
		StreakMultiplier: multiplier,
		FinalPoints:      final,
		Breakdown:        fmt.Sprintf("%d min focus -> %d base x%.1f streak = %d", focusMinutes, base, multiplier, final),
	}
}

// Multiplier grows 10% per consecutive streak day, capped at 2x.
func Multiplier(streakDays int) float64 {
	if streakDays < 0 {
		streakDays = 0
	}
	m := 1.0 + streakStepPerDay*float64(streakDays)
	if m > MaxStreakMultiplier {
		return MaxStreakMultiplier
	}
	return m
}

type StreakTransition struct {
	IsExtended bool `json:"isExtended"`
	IsReset    bool `json:"isReset"`
}

// ComputeStreak applies the day-break rule to the current streak state for
// a completion at the given instant. Same-day completions are idempotent,
// the next calendar day extends by one, and a skipped day resets to 1.
// The first completion ever starts the streak at 1.
func ComputeStreak(state model.StreakState, at time.Time) (model.StreakState, StreakTransition) {
	next := state
	at = at.UTC()
	completed := at
	next.LastCompletedAt = &completed
	next.UpdatedAt = at

	if state.LastCompletedAt == nil {
		next.StreakDays = 1
		return next, StreakTransition{IsExtended: true}
	}

	last := state.LastCompletedAt.UTC()
	switch dayDelta(last, at) {
	case 0:
		next.StreakDays = state.StreakDays
		return next, StreakTransition{}
	case 1:
		next.StreakDays = state.StreakDays + 1
		return next, StreakTransition{IsExtended: true}
	default:
		next.StreakDays = 1
		return next, StreakTransition{IsReset: true}
	}
}

// dayDelta counts calendar days between two instants in UTC.
func dayDelta(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
