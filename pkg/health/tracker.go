package health

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for source health tracking.
var (
	sourceCooldownsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_source_cooldowns_total",
		Help: "Total number of times a source entered cooldown",
	}, []string{"source"})

	sourceConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aggregator_source_consecutive_failures",
		Help: "Current consecutive fetch failure streak per source",
	}, []string{"source"})

	sourceCooldownSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_source_cooldown_skips_total",
		Help: "Fetches skipped because the source was cooling down",
	}, []string{"source"})
)

// Config holds tracker thresholds.
type Config struct {
	// FailureThreshold is the consecutive failure count that triggers
	// cooldown.
	FailureThreshold int

	// Cooldown is how long a tripped source stays unavailable.
	Cooldown time.Duration
}

// DefaultConfig returns safe tracker defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: DefaultFailureThreshold,
		Cooldown:         DefaultCooldown,
	}
}

// Tracker records fetch outcomes per source and gates fetches while a
// source cools down. All state is kept in Redis so every aggregator
// instance sees the same view.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	config Config
}

// NewTracker creates a tracker backed by the given Redis client.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, cfg Config) *Tracker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		config: cfg,
	}
}

// GetState retrieves the current health state for a source. A source with
// no recorded state is healthy.
func (t *Tracker) GetState(ctx context.Context, sourceID string) (*SourceHealth, error) {
	failures, err := t.redis.Get(ctx, failuresKey(sourceID)).Int()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	state := &SourceHealth{ConsecutiveFailures: failures}

	until, err := t.redis.Get(ctx, cooldownKey(sourceID)).Int64()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if err == nil {
		state.CooldownUntil = time.Unix(until, 0)
	}

	return state, nil
}

// Available reports whether a source may be fetched right now. Redis
// errors count as available: health gating must never take the whole
// aggregation down with it.
func (t *Tracker) Available(ctx context.Context, sourceID string) bool {
	state, err := t.GetState(ctx, sourceID)
	if err != nil {
		t.logger.Warn().Err(err).Str("source", sourceID).Msg("Health state lookup failed, assuming available")
		return true
	}

	if state.InCooldown(time.Now()) {
		sourceCooldownSkipsTotal.WithLabelValues(sourceID).Inc()
		t.logger.Debug().
			Str("source", sourceID).
			Dur("remaining", state.CooldownRemaining(time.Now())).
			Msg("Source cooling down, skipping fetch")
		return false
	}

	return true
}

// RecordFailure increments the source's failure streak and trips cooldown
// once the streak reaches the threshold. Best effort: errors are logged,
// never returned.
func (t *Tracker) RecordFailure(ctx context.Context, sourceID string) {
	failures, err := t.redis.Incr(ctx, failuresKey(sourceID)).Result()
	if err != nil {
		t.logger.Warn().Err(err).Str("source", sourceID).Msg("Failed to record source failure")
		return
	}
	t.redis.Expire(ctx, failuresKey(sourceID), failureKeyTTL)

	sourceConsecutiveFailures.WithLabelValues(sourceID).Set(float64(failures))

	state := &SourceHealth{ConsecutiveFailures: int(failures)}
	if !state.ShouldCooldown(t.config.FailureThreshold) {
		return
	}

	until := time.Now().Add(t.config.Cooldown)
	if err := t.redis.Set(ctx, cooldownKey(sourceID), until.Unix(), t.config.Cooldown).Err(); err != nil {
		t.logger.Warn().Err(err).Str("source", sourceID).Msg("Failed to set source cooldown")
		return
	}

	sourceCooldownsTotal.WithLabelValues(sourceID).Inc()
	t.logger.Warn().
		Str("source", sourceID).
		Int64("consecutive_failures", failures).
		Time("cooldown_until", until).
		Msg("Source entered cooldown")
}

// RecordSuccess resets the source's failure streak.
func (t *Tracker) RecordSuccess(ctx context.Context, sourceID string) {
	pipe := t.redis.Pipeline()
	pipe.Del(ctx, failuresKey(sourceID))
	pipe.Del(ctx, cooldownKey(sourceID))
	if _, err := pipe.Exec(ctx); err != nil {
		t.logger.Warn().Err(err).Str("source", sourceID).Msg("Failed to reset source health")
		return
	}
	sourceConsecutiveFailures.WithLabelValues(sourceID).Set(0)
}
