/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

// Package validate pushes flagged unknown words to an external validation
// service and promotes the accepted ones into the vocabulary. The service
// is optional infrastructure: every failure degrades to "words stay
// pending" and is retried on the next cycle.
package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lingualabs/lingua-hub/internal/logging"
	"github.com/lingualabs/lingua-hub/internal/vocab"
	"go.uber.org/zap"
)

// WordStore is the slice of the vocabulary store the client needs.
type WordStore interface {
	PendingUnknownWords() ([]vocab.UnknownWord, error)
	Promote(word, gloss string) (bool, error)
}

// candidate is one unknown word in the request payload.
type candidate struct {
	Word       string  `json:"word"`
	Context    string  `json:"context,omitempty"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// verdict is the service's judgement on one word.
type verdict struct {
	Word     string `json:"word"`
	Accepted bool   `json:"accepted"`
	Gloss    string `json:"gloss,omitempty"`
}

// Client talks to the word validation service over REST.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      WordStore
}

// NewClient creates a validation client.
func NewClient(baseURL string, timeout time.Duration, store WordStore) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		store: store,
	}
}

// Run performs one validation cycle: collect pending words, submit them,
// promote the accepted ones. It returns the number of promotions. An
// unreachable service is logged and reported as an error with zero
// promotions; nothing is lost, the words simply stay pending.
func (c *Client) Run(ctx context.Context) (int, error) {
	pending, err := c.store.PendingUnknownWords()
	if err != nil {
		return 0, fmt.Errorf("failed to load pending words: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	verdicts, err := c.submit(ctx, pending)
	if err != nil {
		logging.LogWarn("Validation service unavailable, keeping words pending",
			zap.Error(err), zap.Int("pending", len(pending)))
		return 0, err
	}

	promoted := 0
	for _, v := range verdicts {
		if !v.Accepted {
			continue
		}
		ok, err := c.store.Promote(v.Word, v.Gloss)
		if err != nil {
			logging.LogError(err, "Failed to promote validated word", zap.String("word", v.Word))
			continue
		}
		if ok {
			promoted++
		}
	}

	logging.Sugar.Infow("Validation cycle complete",
		"submitted", len(pending),
		"verdicts", len(verdicts),
		"promoted", promoted)
	return promoted, nil
}

func (c *Client) submit(ctx context.Context, pending []vocab.UnknownWord) ([]verdict, error) {
	candidates := make([]candidate, len(pending))
	for i, w := range pending {
		candidates[i] = candidate{
			Word:       w.Word,
			Context:    w.Context,
			Language:   w.Language,
			Confidence: w.Confidence,
		}
	}

	body, err := json.Marshal(map[string]interface{}{"words": candidates})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/validate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validation request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close validation response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("validation service returned status %d: %s", resp.StatusCode, snippet)
	}

	var payload struct {
		Results []verdict `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode validation response: %w", err)
	}

	return payload.Results, nil
}
