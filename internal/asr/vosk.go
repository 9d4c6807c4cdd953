/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

//go:build vosk

package asr

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
)

// VoskRecognizer implements Recognizer using the Vosk/Kaldi engine.
// Vosk performs its own silence endpointing: AcceptWaveform reports when an
// utterance boundary has been reached.
type VoskRecognizer struct {
	mu         sync.Mutex
	model      *vosk.VoskModel
	recognizer *vosk.VoskRecognizer
}

type voskResult struct {
	Text  string `json:"text"`
	Words []struct {
		Word string  `json:"word"`
		Conf float64 `json:"conf"`
	} `json:"result"`
}

// NewVoskRecognizer loads a Vosk model directory and creates a recognizer
// with per-word confidence reporting enabled.
func NewVoskRecognizer(modelPath string, sampleRate float64) (*VoskRecognizer, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("vosk model not found: %s", modelPath)
	}

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vosk model: %w", err)
	}

	rec, err := vosk.NewRecognizer(model, sampleRate)
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("failed to create vosk recognizer: %w", err)
	}
	rec.SetWords(1)

	return &VoskRecognizer{
		model:      model,
		recognizer: rec,
	}, nil
}

// Accept feeds one chunk of PCM16 audio. A hypothesis is returned only when
// Vosk signals an utterance boundary.
func (v *VoskRecognizer) Accept(chunk []byte) (*Hypothesis, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.recognizer == nil {
		return nil, fmt.Errorf("recognizer is closed")
	}

	if v.recognizer.AcceptWaveform(chunk) == 0 {
		return nil, nil
	}

	return parseVoskResult(v.recognizer.Result())
}

// Flush returns whatever partial text remains and resets the decoder.
func (v *VoskRecognizer) Flush() (*Hypothesis, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.recognizer == nil {
		return nil, fmt.Errorf("recognizer is closed")
	}

	hyp, err := parseVoskResult(v.recognizer.FinalResult())
	v.recognizer.Reset()
	return hyp, err
}

// Close releases the recognizer and model.
func (v *VoskRecognizer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.recognizer != nil {
		v.recognizer.Free()
		v.recognizer = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}

func parseVoskResult(resultJSON string) (*Hypothesis, error) {
	var result voskResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse vosk result: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return nil, nil
	}

	hyp := &Hypothesis{Text: text}
	for _, w := range result.Words {
		hyp.Words = append(hyp.Words, WordConfidence{Word: w.Word, Confidence: w.Conf})
	}
	return hyp, nil
}

// NewRecognizer creates the default engine-backed recognizer for a model path.
func NewRecognizer(modelPath string, sampleRate float64) (Recognizer, error) {
	return NewVoskRecognizer(modelPath, sampleRate)
}
