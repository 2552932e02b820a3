// Package health tracks per-source fetch health across aggregator
// instances. Sources that keep failing are placed in a cooldown window and
// skipped, so a struggling catalog service is not hammered by every request.
// State lives in Redis and is shared by all instances; the tracker is
// strictly best-effort and never blocks aggregation when Redis itself is
// unavailable.
package health

import (
	"fmt"
	"time"
)

// Redis key templates for per-source health state.
const (
	redisKeyFailures = "agg:health:%s:failures"
	redisKeyCooldown = "agg:health:%s:cooldown_until"
)

// Defaults for cooldown decisions.
const (
	// DefaultFailureThreshold is the number of consecutive fetch failures
	// after which a source enters cooldown.
	DefaultFailureThreshold = 3

	// DefaultCooldown is how long a source stays in cooldown.
	DefaultCooldown = 30 * time.Second

	// failureKeyTTL bounds how long a failure streak is remembered, so a
	// source that goes quiet does not carry stale failures forever.
	failureKeyTTL = 10 * time.Minute
)

// SourceHealth is the observed health of one source.
type SourceHealth struct {
	// ConsecutiveFailures is the current uninterrupted failure streak.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// CooldownUntil is when the source becomes available again.
	// Zero when the source is not cooling down.
	CooldownUntil time.Time `json:"cooldown_until"`
}

// InCooldown reports whether the source is cooling down at time now.
func (s *SourceHealth) InCooldown(now time.Time) bool {
	return now.Before(s.CooldownUntil)
}

// ShouldCooldown reports whether the failure streak has reached threshold.
func (s *SourceHealth) ShouldCooldown(threshold int) bool {
	return s.ConsecutiveFailures >= threshold
}

// CooldownRemaining returns the time left in cooldown, or 0 when none.
func (s *SourceHealth) CooldownRemaining(now time.Time) time.Duration {
	remaining := s.CooldownUntil.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func failuresKey(sourceID string) string {
	return fmt.Sprintf(redisKeyFailures, sourceID)
}

func cooldownKey(sourceID string) string {
	return fmt.Sprintf(redisKeyCooldown, sourceID)
}
