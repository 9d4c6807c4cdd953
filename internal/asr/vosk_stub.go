//go:build !vosk

package asr

import "fmt"

// NewRecognizer stub used when the Vosk engine is disabled at build time.
func NewRecognizer(modelPath string, sampleRate float64) (Recognizer, error) {
	return nil, fmt.Errorf("vosk engine disabled (build with -tags vosk to enable)")
}
