package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mhagen/holdings-aggregator/pkg/aggregator"
	"github.com/mhagen/holdings-aggregator/pkg/health"
	"github.com/mhagen/holdings-aggregator/pkg/logging"
	"github.com/mhagen/holdings-aggregator/pkg/source"
)

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: os.Getenv("LOG_PRETTY") == "true",
		Output: os.Stderr,
	})

	// Configuration from environment
	port := getEnv("PORT", "8080")
	sourcesPath := getEnv("SOURCES_CONFIG", "sources.yaml")
	userAgent := getEnv("USER_AGENT", "holdings-aggregator/0.1.0")

	registry, err := source.LoadRegistry(sourcesPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", sourcesPath).Msg("Failed to load sources config")
	}
	logger.Info().Strs("sources", registry.IDs()).Msg("Loaded source registry")

	// Optional Redis-backed source health tracking
	var tracker *health.Tracker
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", redisURL).Msg("Failed to connect to Redis")
		}
		tracker = health.NewTracker(redisClient, logging.NewLogger("source-health"), health.DefaultConfig())
		logger.Info().Str("addr", redisURL).Msg("Source health tracking enabled")
	}

	fetcherCfg := source.DefaultHTTPConfig()
	fetcherCfg.UserAgent = userAgent
	fetcherCfg.Health = tracker

	svcCfg := aggregator.DefaultConfig(registry)
	svcCfg.FetcherConfig = fetcherCfg

	svc, err := aggregator.New(svcCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create aggregation service")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/holdings", holdingsHandler(svc))

	addr := ":" + port
	logger.Info().Str("addr", addr).Msg("Starting holdings aggregator")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// holdingsHandler serves POST /v1/holdings. Error bodies stay generic:
// per-source failures are never surfaced to callers, and internal details
// do not leak.
func holdingsHandler(svc *aggregator.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req aggregator.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		resp, err := svc.Aggregate(r.Context(), req)
		if err != nil {
			if errors.Is(err, aggregator.ErrInvalidRequest) {
				writeError(w, http.StatusBadRequest, "invalid request")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
