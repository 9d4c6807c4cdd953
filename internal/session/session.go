/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

// Package session tracks the recording state and language focus shared by
// the capture callback and the transcription loop.
package session

import (
	"sync"

	"github.com/lingualabs/lingua-hub/internal/logging"
	"go.uber.org/zap"
)

// FocusAuto requests arbitration across every loaded language.
const FocusAuto = "auto"

// Session is the mutable control surface of the transcriber. Reads happen
// on the capture thread and the loop; writes come from whoever drives the
// controller (signals, a CLI, a future API), so everything is guarded.
type Session struct {
	mu        sync.RWMutex
	recording bool
	focus     map[string]struct{}
	known     map[string]struct{}
}

// New creates a stopped session. known lists the loaded languages; focus
// requests for anything else fall back to auto.
func New(known []string) *Session {
	knownSet := make(map[string]struct{}, len(known))
	for _, lang := range known {
		knownSet[lang] = struct{}{}
	}
	return &Session{known: knownSet}
}

// Start switches the session into recording mode with the given language
// focus. FocusAuto arbitrates across every loaded language. Starting an
// already recording session just updates the focus.
func (s *Session) Start(language string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setFocus(language)
	if s.recording {
		return
	}
	s.recording = true
	logging.Sugar.Infow("Recording started", "focus", language)
}

// Stop switches the session out of recording mode. The transcription loop
// observes the transition and flushes the recognizers; Stop itself only
// flips the state.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return
	}
	s.recording = false
	logging.Sugar.Infow("Recording stopped")
}

// Recording reports whether capture frames should enter the pipeline.
func (s *Session) Recording() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recording
}

// SetFocus restricts arbitration to one language. FocusAuto or a language
// that is not loaded clears the restriction.
func (s *Session) SetFocus(language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setFocus(language)
}

// setFocus is the unlocked core of SetFocus; callers hold the mutex.
func (s *Session) setFocus(language string) {
	if language == FocusAuto {
		s.focus = nil
		logging.Sugar.Infow("Focus cleared", "mode", FocusAuto)
		return
	}

	if _, ok := s.known[language]; !ok {
		s.focus = nil
		logging.LogWarn("Focus requested for unloaded language, falling back to auto",
			zap.String("language", language))
		return
	}

	s.focus = map[string]struct{}{language: {}}
	logging.Sugar.Infow("Focus set", "language", language)
}

// Focus returns a copy of the focus set. Empty means all languages.
func (s *Session) Focus() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.focus) == 0 {
		return nil
	}
	focus := make(map[string]struct{}, len(s.focus))
	for lang := range s.focus {
		focus[lang] = struct{}{}
	}
	return focus
}
