// SPDX-License-Identifier: MIT

// Package config loads the fleetnode runtime configuration from the process
// environment. There is deliberately no file-based configuration: the worker
// is deployed as a container and receives everything via env.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the immutable runtime configuration of one worker process.
type Config struct {
	// DMS client
	DMSBaseURL     string
	RequestTimeout time.Duration

	// Registration collaborator
	DDSBaseURL       string
	NodeURL          string
	RegSecret        string
	Secp256k1PrivHex string

	RegisterInterval time.Duration // zero disables the periodic loop
	RegisterMaxRetry int           // zero uses the announce default

	// Task engine
	HeartbeatJitter time.Duration
	PollBackoffMin  time.Duration
	PollBackoffMax  time.Duration
	MaxConcurrency  int

	// Node token rotation
	TokenSafetyRatio      float64
	TokenReauthMaxRetries int
	TokenReauthJitter     time.Duration

	// HTTP surface
	ListenAddr string

	// Telemetry
	LogFormat    string // "text" or "json"
	OTELEnabled  bool
	OTELExporter string // "grpc" or "http"
	OTELEndpoint string
	OTELSampling float64

	// Test harness
	EnableNoop bool
	NoopSleep  time.Duration
}

// requiredString reads a required environment variable. A missing or empty
// value yields an error naming the key.
func requiredString(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("config: missing required environment variable %s", key)
	}
	return v, nil
}

func requiredSeconds(key string) (time.Duration, error) {
	v, err := requiredString(key)
	if err != nil {
		return 0, err
	}
	secs, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return time.Duration(secs) * time.Second, nil
}

// FromEnv builds the Config from the process environment. The first missing
// required key aborts the load.
func FromEnv() (Config, error) {
	var cfg Config
	var err error

	if cfg.DMSBaseURL, err = requiredString("DMS_BASE_URL"); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = requiredSeconds("REQUEST_TIMEOUT_SECS"); err != nil {
		return Config{}, err
	}
	if cfg.DDSBaseURL, err = requiredString("DDS_BASE_URL"); err != nil {
		return Config{}, err
	}
	if cfg.NodeURL, err = requiredString("NODE_URL"); err != nil {
		return Config{}, err
	}
	if cfg.RegSecret, err = requiredString("REG_SECRET"); err != nil {
		return Config{}, err
	}
	if cfg.Secp256k1PrivHex, err = requiredString("SECP256K1_PRIVHEX"); err != nil {
		return Config{}, err
	}

	cfg.HeartbeatJitter = time.Duration(ParseUint64("HEARTBEAT_JITTER_MS", 250)) * time.Millisecond
	cfg.PollBackoffMin = time.Duration(ParseUint64("POLL_BACKOFF_MS_MIN", 1000)) * time.Millisecond
	cfg.PollBackoffMax = time.Duration(ParseUint64("POLL_BACKOFF_MS_MAX", 30000)) * time.Millisecond
	if cfg.PollBackoffMax < cfg.PollBackoffMin {
		return Config{}, fmt.Errorf("config: POLL_BACKOFF_MS_MAX (%v) below POLL_BACKOFF_MS_MIN (%v)", cfg.PollBackoffMax, cfg.PollBackoffMin)
	}
	cfg.MaxConcurrency = ParseInt("MAX_CONCURRENCY", 1)
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}

	cfg.TokenSafetyRatio = ParseFloat("TOKEN_SAFETY_RATIO", 0.75)
	cfg.TokenReauthMaxRetries = ParseInt("TOKEN_REAUTH_MAX_RETRIES", 3)
	cfg.TokenReauthJitter = time.Duration(ParseUint64("TOKEN_REAUTH_JITTER_MS", 500)) * time.Millisecond

	cfg.RegisterInterval = time.Duration(ParseUint64("REGISTER_INTERVAL_SECS", 0)) * time.Second
	cfg.RegisterMaxRetry = ParseInt("REGISTER_MAX_RETRY", 0)

	cfg.ListenAddr = ParseString("LISTEN_ADDR", ":8080")

	cfg.LogFormat = ParseString("LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return Config{}, fmt.Errorf("config: invalid LOG_FORMAT %q (want \"text\" or \"json\")", cfg.LogFormat)
	}
	cfg.OTELEnabled = ParseBool("OTEL_ENABLED", false)
	cfg.OTELExporter = ParseString("OTEL_EXPORTER", "grpc")
	cfg.OTELEndpoint = ParseString("OTEL_ENDPOINT", "localhost:4317")
	cfg.OTELSampling = ParseFloat("OTEL_SAMPLING_RATE", 1.0)

	cfg.EnableNoop = ParseBool("ENABLE_NOOP", false)
	cfg.NoopSleep = time.Duration(ParseUint64("NOOP_SLEEP_SECS", 5)) * time.Second

	return cfg, nil
}
