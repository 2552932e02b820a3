package health

import (
	"testing"
	"time"
)

func TestSourceHealth_InCooldown(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		state    *SourceHealth
		expected bool
	}{
		{
			name:     "no cooldown recorded",
			state:    &SourceHealth{},
			expected: false,
		},
		{
			name:     "cooldown in the future",
			state:    &SourceHealth{CooldownUntil: now.Add(10 * time.Second)},
			expected: true,
		},
		{
			name:     "cooldown expired",
			state:    &SourceHealth{CooldownUntil: now.Add(-time.Second)},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.InCooldown(now); got != tt.expected {
				t.Errorf("InCooldown() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSourceHealth_ShouldCooldown(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		expected bool
	}{
		{name: "no failures", failures: 0, expected: false},
		{name: "below threshold", failures: 2, expected: false},
		{name: "at threshold", failures: 3, expected: true},
		{name: "above threshold", failures: 7, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &SourceHealth{ConsecutiveFailures: tt.failures}
			if got := state.ShouldCooldown(DefaultFailureThreshold); got != tt.expected {
				t.Errorf("ShouldCooldown() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSourceHealth_CooldownRemaining(t *testing.T) {
	now := time.Now()

	state := &SourceHealth{CooldownUntil: now.Add(5 * time.Second)}
	if got := state.CooldownRemaining(now); got != 5*time.Second {
		t.Errorf("CooldownRemaining() = %v, want 5s", got)
	}

	expired := &SourceHealth{CooldownUntil: now.Add(-time.Minute)}
	if got := expired.CooldownRemaining(now); got != 0 {
		t.Errorf("CooldownRemaining() for expired cooldown = %v, want 0", got)
	}
}

func TestKeys(t *testing.T) {
	if got := failuresKey("central"); got != "agg:health:central:failures" {
		t.Errorf("failuresKey() = %q", got)
	}
	if got := cooldownKey("central"); got != "agg:health:central:cooldown_until" {
		t.Errorf("cooldownKey() = %q", got)
	}
}
