package integrity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"forestfocus/internal/integrity"
)

// fakeClock advances only when told to, simulating both honest ticking and
// manipulated system clocks.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSampleValidAtNormalCadence(t *testing.T) {
	clock := newFakeClock()
	guard := integrity.NewGuard(integrity.DefaultConfig(), clock.Now)
	guard.StartSession()

	for i := 0; i < 10; i++ {
		clock.Advance(30 * time.Second)
		guard.Sample()
		assert.True(t, guard.Check().IsValid)
	}
}

func TestSampleFlagsClockJump(t *testing.T) {
	clock := newFakeClock()
	guard := integrity.NewGuard(integrity.DefaultConfig(), clock.Now)
	guard.StartSession()

	clock.Advance(30 * time.Second)
	guard.Sample()
	assert.True(t, guard.Check().IsValid)

	// Manual clock fast-forward of 20 minutes between samples.
	clock.Advance(20 * time.Minute)
	guard.Sample()
	result := guard.Check()
	assert.False(t, result.IsValid)
	assert.Equal(t, integrity.ReasonClockJump, result.Reason)
	assert.Greater(t, result.ClockJumpSeconds, 0)
}

func TestCheckTakesNoClockSample(t *testing.T) {
	clock := newFakeClock()
	guard := integrity.NewGuard(integrity.DefaultConfig(), clock.Now)
	guard.StartSession()

	// A full honest focus phase passes with no intermediate samples; the
	// verdict call must not read the elapsed time as a jump.
	clock.Advance(25 * time.Minute)
	assert.True(t, guard.Check().IsValid)
}

func TestRebaselineSkipsPausedWallTime(t *testing.T) {
	clock := newFakeClock()
	guard := integrity.NewGuard(integrity.DefaultConfig(), clock.Now)
	guard.StartSession()

	clock.Advance(30 * time.Second)
	guard.Sample()

	// Paused for ten minutes, then rebaselined before sampling resumes.
	clock.Advance(10 * time.Minute)
	guard.Rebaseline()

	clock.Advance(30 * time.Second)
	guard.Sample()
	assert.True(t, guard.Check().IsValid)
}

func TestViolationSticksUntilStop(t *testing.T) {
	clock := newFakeClock()
	guard := integrity.NewGuard(integrity.DefaultConfig(), clock.Now)
	guard.StartSession()

	clock.Advance(20 * time.Minute)
	guard.Sample()
	assert.False(t, guard.Check().IsValid)

	clock.Advance(30 * time.Second)
	guard.Sample()
	assert.False(t, guard.Check().IsValid, "violation must persist for the session")

	guard.StopSession()
	guard.StartSession()
	clock.Advance(30 * time.Second)
	guard.Sample()
	assert.True(t, guard.Check().IsValid, "new session starts clean")
}

func TestBackgroundDwellExceeded(t *testing.T) {
	clock := newFakeClock()
	cfg := integrity.DefaultConfig()
	cfg.DetectClockJumps = false
	guard := integrity.NewGuard(cfg, clock.Now)
	guard.StartSession()

	guard.SetVisible(false)
	clock.Advance(90 * time.Second)

	result := guard.Check()
	assert.False(t, result.IsValid)
	assert.Equal(t, integrity.ReasonBackgroundExceeded, result.Reason)
	assert.GreaterOrEqual(t, result.BackgroundTimeSeconds, 90)
}

func TestForegroundResetsBackgroundClock(t *testing.T) {
	clock := newFakeClock()
	cfg := integrity.DefaultConfig()
	cfg.DetectClockJumps = false
	guard := integrity.NewGuard(cfg, clock.Now)
	guard.StartSession()

	// Two 40s dwells with a foreground return in between: the clock
	// restarts from scratch, so neither exceeds the 60s limit.
	guard.SetVisible(false)
	clock.Advance(40 * time.Second)
	guard.SetVisible(true)

	guard.SetVisible(false)
	clock.Advance(40 * time.Second)
	guard.SetVisible(true)

	assert.True(t, guard.Check().IsValid)
}

func TestDwellCaughtOnForegroundReturn(t *testing.T) {
	clock := newFakeClock()
	cfg := integrity.DefaultConfig()
	cfg.DetectClockJumps = false
	guard := integrity.NewGuard(cfg, clock.Now)
	guard.StartSession()

	guard.SetVisible(false)
	clock.Advance(2 * time.Minute)
	guard.SetVisible(true)

	result := guard.Check()
	assert.False(t, result.IsValid)
	assert.Equal(t, integrity.ReasonBackgroundExceeded, result.Reason)
}

func TestRequireForegroundDisabled(t *testing.T) {
	clock := newFakeClock()
	cfg := integrity.DefaultConfig()
	cfg.DetectClockJumps = false
	cfg.RequireForeground = false
	guard := integrity.NewGuard(cfg, clock.Now)
	guard.StartSession()

	guard.SetVisible(false)
	clock.Advance(10 * time.Minute)
	assert.True(t, guard.Check().IsValid)
}

func TestUpdateConfigAppliesToSubsequentChecks(t *testing.T) {
	clock := newFakeClock()
	guard := integrity.NewGuard(integrity.DefaultConfig(), clock.Now)
	guard.StartSession()

	cfg := guard.Config()
	cfg.MaxClockJumpSeconds = 3600
	guard.UpdateConfig(cfg)

	clock.Advance(20 * time.Minute)
	guard.Sample()
	assert.True(t, guard.Check().IsValid, "raised threshold tolerates the gap")
}

func TestCheckWithoutSessionIsValid(t *testing.T) {
	guard := integrity.NewGuard(integrity.DefaultConfig(), nil)
	assert.True(t, guard.Check().IsValid)
}
