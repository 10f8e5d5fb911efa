// Package fingerprint derives the tamper-evidence / idempotency key for a
// focus session. The hash is deliberately non-cryptographic: it only needs
// to be deterministic and collision-resistant within one user's history.
package fingerprint

import (
	"encoding/hex"
	"hash/fnv"
	"time"
)

// Sum returns the fingerprint for a session identity and its RFC3339 start
// time. Identical inputs always produce identical output.
func Sum(sessionID, startedAtISO string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionID))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(startedAtISO))
	return hex.EncodeToString(h.Sum(nil))
}

// ForSession is the canonical form used on both sides of the submission
// boundary: the start time is normalized to UTC RFC3339Nano before hashing
// so client and server derive the same key from the same instant.
func ForSession(sessionID string, startedAt time.Time) string {
	return Sum(sessionID, startedAt.UTC().Format(time.RFC3339Nano))
}
