/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

// Package pipeline runs the transcription loop: dequeue captured frames,
// fan them out to the recognizer pool, arbitrate the hypotheses, and
// persist the winners. One goroutine owns the whole path, so recognizer
// state never needs locking.
package pipeline

import (
	"context"
	"time"

	"github.com/lingualabs/lingua-hub/internal/arbiter"
	"github.com/lingualabs/lingua-hub/internal/asr"
	"github.com/lingualabs/lingua-hub/internal/audio"
	"github.com/lingualabs/lingua-hub/internal/logging"
	"github.com/lingualabs/lingua-hub/internal/messaging"
	"github.com/lingualabs/lingua-hub/internal/session"
	"github.com/lingualabs/lingua-hub/internal/vocab"
	"go.uber.org/zap"
)

// Loop wires the frame queue to the recognizers, arbiter, and store.
type Loop struct {
	queue       *audio.FrameQueue
	pool        *asr.Pool
	arb         *arbiter.Arbiter
	session     *session.Session
	store       *vocab.Store
	clips       *audio.ClipStore // nil disables clip persistence
	publisher   *messaging.Publisher
	pollTimeout time.Duration
}

// New assembles a transcription loop.
func New(
	queue *audio.FrameQueue,
	pool *asr.Pool,
	arb *arbiter.Arbiter,
	sess *session.Session,
	store *vocab.Store,
	clips *audio.ClipStore,
	publisher *messaging.Publisher,
	pollTimeout time.Duration,
) *Loop {
	return &Loop{
		queue:       queue,
		pool:        pool,
		arb:         arb,
		session:     sess,
		store:       store,
		clips:       clips,
		publisher:   publisher,
		pollTimeout: pollTimeout,
	}
}

// Run processes frames until the context is cancelled. A stop transition
// is edge-triggered: when recording ends, the queue drains, the recognizers
// are flushed once, and any surviving fragment is persisted without a clip.
func (l *Loop) Run(ctx context.Context) {
	logging.Sugar.Infow("Transcription loop started", "languages", l.pool.Languages())

	wasRecording := false
	var segment []byte

	for {
		select {
		case <-ctx.Done():
			if wasRecording {
				l.flush()
			}
			logging.Sugar.Infow("Transcription loop stopped")
			return
		default:
		}

		frame, ok := l.queue.Pop(l.pollTimeout)
		if !ok {
			if wasRecording && !l.session.Recording() {
				l.flush()
				wasRecording = false
				segment = nil
			}
			continue
		}

		wasRecording = true
		segment = appendSegment(segment, frame)

		candidates := l.pool.Feed(l.session.Focus(), frame)
		if decision := l.arb.Decide(candidates, false); decision != nil {
			l.persist(decision, segment)
		}
		if len(candidates) > 0 {
			// The recognizers endpointed and reset their own buffers, so
			// the held audio no longer belongs to any pending utterance,
			// winner or not.
			segment = nil
		}
	}
}

// maxSegmentBytes caps audio buffered for the next clip, about 30 seconds
// of 16kHz mono PCM16. Sustained audio that never endpoints (line noise,
// a dead recognizer) must not grow the buffer forever.
const maxSegmentBytes = 960000

// appendSegment accumulates frame audio, keeping only the most recent
// maxSegmentBytes.
func appendSegment(segment, frame []byte) []byte {
	segment = append(segment, frame...)
	if len(segment) > maxSegmentBytes {
		trimmed := make([]byte, maxSegmentBytes)
		copy(trimmed, segment[len(segment)-maxSegmentBytes:])
		return trimmed
	}
	return segment
}

// flush forces the recognizers to emit their buffered partials and runs
// one final arbitration pass. Fragments never get a clip: the buffered
// audio does not line up with a completed utterance.
func (l *Loop) flush() {
	candidates := l.pool.Flush(l.session.Focus())
	if decision := l.arb.Decide(candidates, true); decision != nil {
		l.persist(decision, nil)
	}
}

// persist writes the decision and its side effects. Persistence failures
// are logged and the loop keeps going; dropping one segment is better than
// halting live transcription.
func (l *Loop) persist(decision *arbiter.Decision, segment []byte) {
	audioFile := ""
	if !decision.Flush && l.clips != nil && len(segment) > 0 {
		name, err := l.clips.Save(decision.Language, segment)
		if err != nil {
			logging.LogError(err, "Failed to save audio clip",
				zap.String("language", decision.Language))
		} else {
			audioFile = name
		}
	}

	corrected, err := l.store.RecordTranscript(decision.Text, decision.Language, audioFile)
	if err != nil {
		logging.LogError(err, "Failed to persist transcript",
			zap.String("language", decision.Language),
			zap.String("text", decision.Text))
		if audioFile != "" {
			// No transcript row references the clip; do not leave it behind.
			if rmErr := l.clips.Remove(audioFile); rmErr != nil {
				logging.LogError(rmErr, "Failed to remove orphaned clip",
					zap.String("clip", audioFile))
			}
		}
		return
	}

	for _, w := range l.arb.FlaggedWords(decision) {
		if err := l.store.RecordUnknownWord(w.Word, corrected, decision.Language, w.Confidence); err != nil {
			logging.LogError(err, "Failed to record unknown word", zap.String("word", w.Word))
		}
	}

	event := &messaging.TranscriptEvent{
		Timestamp: time.Now().Unix(),
		Language:  decision.Language,
		Text:      corrected,
		AudioFile: audioFile,
		Score:     decision.Score,
		Flush:     decision.Flush,
	}
	if err := l.publisher.PublishTranscript(event); err != nil {
		logging.LogError(err, "Failed to publish transcript event")
	}
}
