/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

package validate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/lingualabs/lingua-hub/internal/logging"
	"github.com/lingualabs/lingua-hub/internal/vocab"
)

func TestMain(m *testing.M) {
	if err := logging.Initialize(); err != nil {
		os.Exit(1)
	}
	code := m.Run()
	logging.Close()
	os.Exit(code)
}

type fakeStore struct {
	pending  []vocab.UnknownWord
	promoted map[string]string
}

func newFakeStore(words ...vocab.UnknownWord) *fakeStore {
	return &fakeStore{
		pending:  words,
		promoted: make(map[string]string),
	}
}

func (f *fakeStore) PendingUnknownWords() ([]vocab.UnknownWord, error) {
	return f.pending, nil
}

func (f *fakeStore) Promote(word, gloss string) (bool, error) {
	if _, exists := f.promoted[word]; exists {
		return false, nil
	}
	f.promoted[word] = gloss
	return true, nil
}

func TestRunPromotesAcceptedWords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/validate" {
			t.Errorf("path = %q, want /validate", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}

		var req struct {
			Words []struct {
				Word     string `json:"word"`
				Language string `json:"language"`
			} `json:"words"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			return
		}
		if len(req.Words) != 2 {
			t.Errorf("submitted %d words, want 2", len(req.Words))
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"word": "quixotic", "accepted": true, "gloss": "idealista"},
				{"word": "blorp", "accepted": false},
			},
		})
	}))
	defer server.Close()

	store := newFakeStore(
		vocab.UnknownWord{Word: "quixotic", Language: "en", Confidence: 0.5},
		vocab.UnknownWord{Word: "blorp", Language: "en", Confidence: 0.2},
	)
	client := NewClient(server.URL, 5*time.Second, store)

	promoted, err := client.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if promoted != 1 {
		t.Errorf("promoted = %d, want 1", promoted)
	}
	if gloss, ok := store.promoted["quixotic"]; !ok || gloss != "idealista" {
		t.Errorf("promoted[quixotic] = %q/%v, want idealista/true", gloss, ok)
	}
	if _, ok := store.promoted["blorp"]; ok {
		t.Error("rejected word was promoted")
	}
}

func TestRunNothingPending(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, newFakeStore())
	promoted, err := client.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if promoted != 0 {
		t.Errorf("promoted = %d, want 0", promoted)
	}
	if called {
		t.Error("service called with nothing pending")
	}
}

func TestRunServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	store := newFakeStore(vocab.UnknownWord{Word: "quixotic", Language: "en"})
	client := NewClient(server.URL, time.Second, store)

	promoted, err := client.Run(context.Background())
	if err == nil {
		t.Error("Run() error = nil, want connection error")
	}
	if promoted != 0 {
		t.Errorf("promoted = %d, want 0", promoted)
	}
	if len(store.promoted) != 0 {
		t.Error("words promoted despite unreachable service")
	}
}

func TestRunServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	store := newFakeStore(vocab.UnknownWord{Word: "quixotic", Language: "en"})
	client := NewClient(server.URL, time.Second, store)

	if _, err := client.Run(context.Background()); err == nil {
		t.Error("Run() error = nil, want status error")
	}
}
