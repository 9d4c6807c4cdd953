/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the lingua hub
type Config struct {
	Audio      AudioConfig
	Arbiter    ArbiterConfig
	Corrector  CorrectorConfig
	Store      StoreConfig
	Clips      ClipsConfig
	Models     ModelsConfig
	Session    SessionConfig
	NATS       NATSConfig
	Validation ValidationConfig
	Logging    LoggingConfig
}

// AudioConfig holds capture and queueing configuration
type AudioConfig struct {
	SampleRate    int           // Capture sample rate in Hz
	FrameSize     int           // Samples per capture frame
	QueueCapacity int           // Bounded frame queue size
	PollTimeout   time.Duration // Transcription loop dequeue timeout
}

// ArbiterConfig holds hypothesis scoring configuration
type ArbiterConfig struct {
	LiveMinConfidence  float64 // Confidence floor for live chunks
	FlushMinConfidence float64 // Confidence floor for stop-flush fragments
	StopWordBonus      float64 // Score bonus per matched stop word
	UnknownWordBelow   float64 // Per-word confidence below which a word is flagged
}

// CorrectorConfig holds transcript correction configuration
type CorrectorConfig struct {
	MinSimilarity float64 // Similarity cutoff for vocabulary replacement
}

// StoreConfig holds vocabulary store configuration
type StoreConfig struct {
	Path string
}

// ClipsConfig holds audio clip storage configuration
type ClipsConfig struct {
	Dir string
}

// ModelsConfig holds language pack discovery configuration
type ModelsConfig struct {
	Root      string   // Directory searched for model candidates
	Languages []string // Languages to attempt to load, in order
}

// SessionConfig holds the initial session state
type SessionConfig struct {
	Focus string // Initial focus language, or "auto" for all
}

// NATSConfig holds transcript event publishing configuration.
// An empty URL disables publishing entirely.
type NATSConfig struct {
	URL           string
	Subject       string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// ValidationConfig holds word validation service configuration.
// An empty URL disables the periodic validation trigger.
type ValidationConfig struct {
	URL      string
	Interval time.Duration
	Timeout  time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Audio: AudioConfig{
			SampleRate:    getEnvInt("LINGUA_SAMPLE_RATE", 16000),
			FrameSize:     getEnvInt("LINGUA_FRAME_SIZE", 8000),
			QueueCapacity: getEnvInt("LINGUA_QUEUE_CAPACITY", 256),
			PollTimeout:   getEnvDuration("LINGUA_POLL_TIMEOUT", 500*time.Millisecond),
		},
		Arbiter: ArbiterConfig{
			LiveMinConfidence:  getEnvFloat64("LINGUA_LIVE_MIN_CONFIDENCE", 0.6),
			FlushMinConfidence: getEnvFloat64("LINGUA_FLUSH_MIN_CONFIDENCE", 0.6),
			StopWordBonus:      getEnvFloat64("LINGUA_STOP_WORD_BONUS", 20.0),
			UnknownWordBelow:   getEnvFloat64("LINGUA_UNKNOWN_WORD_BELOW", 0.6),
		},
		Corrector: CorrectorConfig{
			MinSimilarity: getEnvFloat64("LINGUA_MIN_SIMILARITY", 0.85),
		},
		Store: StoreConfig{
			Path: getEnvString("LINGUA_DB_PATH", "./data/lingua-hub.db"),
		},
		Clips: ClipsConfig{
			Dir: getEnvString("LINGUA_CLIPS_DIR", "./audio_clips"),
		},
		Models: ModelsConfig{
			Root:      getEnvString("LINGUA_MODELS_DIR", "."),
			Languages: getEnvStringList("LINGUA_LANGUAGES", []string{"en", "es", "hi"}),
		},
		Session: SessionConfig{
			Focus: getEnvString("LINGUA_FOCUS", "auto"),
		},
		NATS: NATSConfig{
			URL:           getEnvString("NATS_URL", ""),
			Subject:       getEnvString("NATS_SUBJECT", "lingua.transcripts"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Validation: ValidationConfig{
			URL:      getEnvString("LINGUA_VALIDATION_URL", ""),
			Interval: getEnvDuration("LINGUA_VALIDATION_INTERVAL", 5*time.Minute),
			Timeout:  getEnvDuration("LINGUA_VALIDATION_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "console"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.Audio.SampleRate)
	}

	if c.Audio.FrameSize <= 0 {
		return fmt.Errorf("invalid frame size: %d", c.Audio.FrameSize)
	}

	if c.Audio.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive: %d", c.Audio.QueueCapacity)
	}

	if c.Audio.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive: %v", c.Audio.PollTimeout)
	}

	if c.Arbiter.LiveMinConfidence < 0 || c.Arbiter.LiveMinConfidence > 1 {
		return fmt.Errorf("live min confidence must be between 0 and 1: %f", c.Arbiter.LiveMinConfidence)
	}

	if c.Arbiter.FlushMinConfidence < 0 || c.Arbiter.FlushMinConfidence > 1 {
		return fmt.Errorf("flush min confidence must be between 0 and 1: %f", c.Arbiter.FlushMinConfidence)
	}

	if c.Arbiter.StopWordBonus < 0 {
		return fmt.Errorf("stop word bonus must not be negative: %f", c.Arbiter.StopWordBonus)
	}

	if c.Arbiter.UnknownWordBelow < 0 || c.Arbiter.UnknownWordBelow > 1 {
		return fmt.Errorf("unknown word threshold must be between 0 and 1: %f", c.Arbiter.UnknownWordBelow)
	}

	if c.Corrector.MinSimilarity <= 0 || c.Corrector.MinSimilarity > 1 {
		return fmt.Errorf("min similarity must be in (0, 1]: %f", c.Corrector.MinSimilarity)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store path must be provided")
	}

	if len(c.Models.Languages) == 0 {
		return fmt.Errorf("at least one language must be configured")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvStringList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var list []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
