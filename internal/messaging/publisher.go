/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

// Package messaging publishes transcript events to NATS for downstream
// consumers (study tools, dashboards). Publishing is fire-and-forget: a
// broken broker never stalls transcription.
package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/lingualabs/lingua-hub/internal/config"
	"github.com/lingualabs/lingua-hub/internal/logging"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// TranscriptEvent is the wire form of one arbitrated transcript segment.
type TranscriptEvent struct {
	Timestamp int64   `json:"timestamp"`
	Language  string  `json:"language"`
	Text      string  `json:"text"`
	AudioFile string  `json:"audio_file,omitempty"`
	Score     float64 `json:"score"`
	Flush     bool    `json:"flush"`
}

// Publisher sends transcript events to a NATS subject. A nil Publisher is
// valid and drops every event, which is how publishing stays optional.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect establishes the NATS connection with reconnect handling.
// Returns nil (publishing disabled) when no URL is configured.
func Connect(cfg config.NATSConfig) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts := []nats.Option{
		nats.Name("lingua-hub"),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logging.Sugar.Infow("Connected to NATS", "url", conn.ConnectedUrl(), "subject", cfg.Subject)
	return &Publisher{
		conn:    conn,
		subject: cfg.Subject,
	}, nil
}

// PublishTranscript sends one event. Errors are returned for the caller to
// log; they are never fatal to the pipeline.
func (p *Publisher) PublishTranscript(event *TranscriptEvent) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.subject, err)
	}

	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		logging.LogError(err, "Failed to drain NATS connection")
		p.conn.Close()
	}
}
