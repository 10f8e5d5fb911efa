package fingerprint_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"forestfocus/internal/fingerprint"
)

func TestSumDeterministic(t *testing.T) {
	a := fingerprint.Sum("session-1", "2026-08-28T09:00:00Z")
	for i := 0; i < 10; i++ {
		assert.Equal(t, a, fingerprint.Sum("session-1", "2026-08-28T09:00:00Z"))
	}
	assert.NotEmpty(t, a)
}

func TestSumDistinguishesInputs(t *testing.T) {
	base := fingerprint.Sum("session-1", "2026-08-28T09:00:00Z")
	assert.NotEqual(t, base, fingerprint.Sum("session-2", "2026-08-28T09:00:00Z"))
	assert.NotEqual(t, base, fingerprint.Sum("session-1", "2026-08-28T09:00:01Z"))
}

func TestForSessionMatchesNormalizedSum(t *testing.T) {
	startedAt := time.Date(2026, 8, 28, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))
	want := fingerprint.Sum("session-1", startedAt.UTC().Format(time.RFC3339Nano))
	assert.Equal(t, want, fingerprint.ForSession("session-1", startedAt))
}
