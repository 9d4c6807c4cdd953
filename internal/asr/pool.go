/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

package asr

import (
	"fmt"

	"github.com/lingualabs/lingua-hub/internal/logging"
	"go.uber.org/zap"
)

// Pool holds one recognizer per active language. Iteration order is the
// registration order, which keeps arbitration deterministic.
type Pool struct {
	order       []string
	recognizers map[string]Recognizer
}

// NewPool creates an empty recognizer pool.
func NewPool() *Pool {
	return &Pool{
		recognizers: make(map[string]Recognizer),
	}
}

// Add registers a recognizer for a language. Registering the same language
// twice is an error.
func (p *Pool) Add(language string, rec Recognizer) error {
	if _, exists := p.recognizers[language]; exists {
		return fmt.Errorf("recognizer already registered for language %q", language)
	}

	p.order = append(p.order, language)
	p.recognizers[language] = rec
	return nil
}

// Languages returns the registered languages in registration order.
func (p *Pool) Languages() []string {
	langs := make([]string, len(p.order))
	copy(langs, p.order)
	return langs
}

// Len returns the number of registered recognizers.
func (p *Pool) Len() int {
	return len(p.order)
}

// Feed hands one audio chunk to every focused recognizer and collects the
// completed hypotheses. Languages outside a non-empty focus set are not fed
// at all, so idle languages consume no CPU. Decode failures are logged and
// treated as "no hypothesis" for that language.
func (p *Pool) Feed(focus map[string]struct{}, chunk []byte) []Candidate {
	var candidates []Candidate

	for _, lang := range p.order {
		if !focused(focus, lang) {
			continue
		}

		hyp, err := p.recognizers[lang].Accept(chunk)
		if err != nil {
			logging.LogError(err, "Recognizer decode failed", zap.String("language", lang))
			continue
		}
		if hyp == nil {
			continue
		}

		candidates = append(candidates, Candidate{Language: lang, Hypothesis: hyp})
	}

	return candidates
}

// Flush forces every focused recognizer to emit its buffered partial text.
// Empty hypotheses are dropped here; scoring decides the rest.
func (p *Pool) Flush(focus map[string]struct{}) []Candidate {
	var candidates []Candidate

	for _, lang := range p.order {
		if !focused(focus, lang) {
			continue
		}

		hyp, err := p.recognizers[lang].Flush()
		if err != nil {
			logging.LogError(err, "Recognizer flush failed", zap.String("language", lang))
			continue
		}
		if hyp == nil {
			continue
		}

		candidates = append(candidates, Candidate{Language: lang, Hypothesis: hyp})
	}

	return candidates
}

// Close releases every recognizer.
func (p *Pool) Close() {
	for _, lang := range p.order {
		if err := p.recognizers[lang].Close(); err != nil {
			logging.LogError(err, "Failed to close recognizer", zap.String("language", lang))
		}
	}
}

// focused reports whether a language participates given the focus set.
// An empty focus set means all languages participate.
func focused(focus map[string]struct{}, language string) bool {
	if len(focus) == 0 {
		return true
	}
	_, ok := focus[language]
	return ok
}
