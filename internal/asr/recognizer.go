/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

// Package asr holds the per-language speech recognizers and the pool that
// fans audio out to them.
package asr

// WordConfidence pairs a recognized word with its decoder confidence.
type WordConfidence struct {
	Word       string  `json:"word"`
	Confidence float64 `json:"conf"`
}

// Hypothesis is one recognizer's candidate transcript for an audio chunk.
type Hypothesis struct {
	Text  string           `json:"text"`
	Words []WordConfidence `json:"result,omitempty"`
}

// AvgConfidence returns the mean per-word confidence. Engines that omit
// word confidences are treated as fully confident.
func (h *Hypothesis) AvgConfidence() float64 {
	if len(h.Words) == 0 {
		return 1.0
	}

	var sum float64
	for _, w := range h.Words {
		sum += w.Confidence
	}
	return sum / float64(len(h.Words))
}

// Recognizer is a stateful speech recognizer for one language. It
// accumulates audio internally and decides utterance boundaries itself.
type Recognizer interface {
	// Accept feeds one chunk of 16-bit little-endian PCM audio. It returns
	// a hypothesis only when the recognizer judges an utterance complete,
	// nil otherwise.
	Accept(chunk []byte) (*Hypothesis, error)

	// Flush forces emission of whatever partial text is buffered and
	// resets the recognizer. Used on the recording-stop transition.
	Flush() (*Hypothesis, error)

	// Close releases engine resources.
	Close() error
}

// Candidate pairs a hypothesis with the language whose recognizer produced it.
type Candidate struct {
	Language   string
	Hypothesis *Hypothesis
}
