/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

// Package arbiter scores competing recognizer hypotheses for one audio
// chunk and selects a single winner.
package arbiter

import (
	"strings"

	"github.com/lingualabs/lingua-hub/internal/asr"
	"github.com/lingualabs/lingua-hub/internal/logging"
)

// Config holds the scoring thresholds. Small acoustic models hallucinate
// fluent-sounding nonsense; the stop-word bonus rewards the presence of
// genuine function words, which is strong independent evidence that a
// hypothesis is real speech in that language.
type Config struct {
	LiveMinConfidence  float64 // discard live hypotheses below this average confidence
	FlushMinConfidence float64 // discard stop-flush fragments below this average confidence
	StopWordBonus      float64 // score bonus per matched stop word
	UnknownWordBelow   float64 // flag winner words below this confidence for review
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{
		LiveMinConfidence:  0.6,
		FlushMinConfidence: 0.6,
		StopWordBonus:      20.0,
		UnknownWordBelow:   0.6,
	}
}

// Decision is the arbitration outcome for one chunk.
type Decision struct {
	Language string
	Text     string
	Words    []asr.WordConfidence
	Score    float64
	Flush    bool // true when produced by a stop-flush, not a live chunk
}

// Arbiter ranks hypotheses by score and picks the winner.
type Arbiter struct {
	cfg       Config
	stopWords map[string]map[string]struct{}
}

// New creates an arbiter. A nil stop-word table falls back to the built-in
// per-language sets.
func New(cfg Config, stopWords map[string]map[string]struct{}) *Arbiter {
	if stopWords == nil {
		stopWords = DefaultStopWords()
	}
	return &Arbiter{
		cfg:       cfg,
		stopWords: stopWords,
	}
}

// Decide scores the candidates and returns the winner, or nil when no
// hypothesis survives (silence and noise are absorbed here). Ties resolve
// to the first-seen candidate, so results are deterministic for a fixed
// input order.
func (a *Arbiter) Decide(candidates []asr.Candidate, flush bool) *Decision {
	minConfidence := a.cfg.LiveMinConfidence
	if flush {
		minConfidence = a.cfg.FlushMinConfidence
	}

	var winner *Decision
	for _, cand := range candidates {
		text := strings.TrimSpace(cand.Hypothesis.Text)
		if text == "" {
			continue
		}

		avgConf := cand.Hypothesis.AvgConfidence()
		if avgConf < minConfidence {
			logging.Sugar.Debugw("Hypothesis below confidence floor",
				"language", cand.Language,
				"avg_confidence", avgConf,
				"min_confidence", minConfidence)
			continue
		}

		score := a.score(cand.Language, text, avgConf)

		logging.Sugar.Debugw("Scored hypothesis",
			"language", cand.Language,
			"text", text,
			"avg_confidence", avgConf,
			"score", score)

		if winner == nil || score > winner.Score {
			winner = &Decision{
				Language: cand.Language,
				Text:     text,
				Words:    cand.Hypothesis.Words,
				Score:    score,
				Flush:    flush,
			}
		}
	}

	if winner != nil {
		logging.Sugar.Infow("Arbitration winner",
			"language", winner.Language,
			"text", winner.Text,
			"score", winner.Score,
			"flush", winner.Flush,
			"candidates", len(candidates))
	}

	return winner
}

// score computes len(text)*avgConf plus the stop-word bonus. Length is in
// runes so non-Latin scripts are not penalized.
func (a *Arbiter) score(language, text string, avgConf float64) float64 {
	base := float64(len([]rune(text))) * avgConf

	var bonus float64
	stops := a.stopWords[language]
	if len(stops) > 0 {
		seen := make(map[string]struct{})
		for _, token := range strings.Fields(strings.ToLower(text)) {
			if _, isStop := stops[token]; !isStop {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			bonus += a.cfg.StopWordBonus
		}
	}

	return base + bonus
}

// unknownSentinels are the tokens engines emit for out-of-vocabulary audio.
var unknownSentinels = map[string]struct{}{
	"<unk>": {},
	"[unk]": {},
}

// FlaggedWords returns the winner's words that should be captured for
// later review: low-confidence words and unrecognized-token sentinels.
func (a *Arbiter) FlaggedWords(d *Decision) []asr.WordConfidence {
	var flagged []asr.WordConfidence
	for _, w := range d.Words {
		_, sentinel := unknownSentinels[w.Word]
		if w.Confidence < a.cfg.UnknownWordBelow || sentinel {
			flagged = append(flagged, w)
		}
	}
	return flagged
}
