/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/lingualabs/lingua-hub/internal/arbiter"
	"github.com/lingualabs/lingua-hub/internal/asr"
	"github.com/lingualabs/lingua-hub/internal/audio"
	"github.com/lingualabs/lingua-hub/internal/logging"
	"github.com/lingualabs/lingua-hub/internal/session"
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

// scriptedRecognizer emits hypotheses scripted by accepted-chunk number,
// and another on flush.
type scriptedRecognizer struct {
	mu       sync.Mutex
	script   map[int]*asr.Hypothesis
	flushHyp *asr.Hypothesis
	accepted int
	flushed  int
}

func (r *scriptedRecognizer) Accept(chunk []byte) (*asr.Hypothesis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted++
	return r.script[r.accepted], nil
}

func (r *scriptedRecognizer) Flush() (*asr.Hypothesis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed++
	return r.flushHyp, nil
}

func (r *scriptedRecognizer) Close() error { return nil }

func (r *scriptedRecognizer) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accepted, r.flushed
}

func hypothesis(text string, conf float64, words ...string) *asr.Hypothesis {
	h := &asr.Hypothesis{Text: text}
	for _, w := range words {
		h.Words = append(h.Words, asr.WordConfidence{Word: w, Confidence: conf})
	}
	return h
}

type fixture struct {
	queue    *audio.FrameQueue
	sess     *session.Session
	store    *vocab.Store
	db       *vocab.Database
	loop     *Loop
	clipsDir string
}

func newFixture(t *testing.T, recognizers map[string]*scriptedRecognizer, withClips bool) *fixture {
	t.Helper()

	db, err := vocab.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDatabase() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := vocab.NewStore(db, vocab.NewCorrector(nil, 0.85))

	pool := asr.NewPool()
	var langs []string
	for _, lang := range []string{"en", "es"} {
		if rec, ok := recognizers[lang]; ok {
			if err := pool.Add(lang, rec); err != nil {
				t.Fatalf("pool.Add(%s) error: %v", lang, err)
			}
			langs = append(langs, lang)
		}
	}

	var clips *audio.ClipStore
	clipsDir := ""
	if withClips {
		clipsDir = t.TempDir()
		clips, err = audio.NewClipStore(clipsDir, 16000)
		if err != nil {
			t.Fatalf("NewClipStore() error: %v", err)
		}
	}

	sess := session.New(langs)
	queue := audio.NewFrameQueue(16)
	loop := New(queue, pool, arbiter.New(arbiter.DefaultConfig(), nil),
		sess, store, clips, nil, 10*time.Millisecond)

	return &fixture{
		queue:    queue,
		sess:     sess,
		store:    store,
		db:       db,
		loop:     loop,
		clipsDir: clipsDir,
	}
}

// run starts the loop and returns a cancel-and-wait function.
func (f *fixture) run() func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.loop.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// waitForTranscripts polls until the store holds want transcripts.
func (f *fixture) waitForTranscripts(t *testing.T, want int) []vocab.Transcript {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		transcripts, err := f.store.ListTranscripts(vocab.ListOptions{})
		if err != nil {
			t.Fatalf("ListTranscripts() error: %v", err)
		}
		if len(transcripts) >= want {
			return transcripts
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d transcripts", want)
	return nil
}

func TestLoopPersistsLiveDecisionWithClip(t *testing.T) {
	en := &scriptedRecognizer{
		script: map[int]*asr.Hypothesis{2: hypothesis("hello there", 0.9, "hello", "there")},
	}
	f := newFixture(t, map[string]*scriptedRecognizer{"en": en}, true)
	stop := f.run()
	defer stop()

	f.sess.Start(session.FocusAuto)
	frame := make([]byte, 64)
	f.queue.Push(frame)
	f.queue.Push(frame)

	transcripts := f.waitForTranscripts(t, 1)
	if transcripts[0].Text != "hello there" {
		t.Errorf("Text = %q, want %q", transcripts[0].Text, "hello there")
	}
	if transcripts[0].Language != "en" {
		t.Errorf("Language = %q, want en", transcripts[0].Language)
	}
	if transcripts[0].AudioFile == "" {
		t.Error("AudioFile empty, want clip reference for live decision")
	}
}

func TestLoopFlushesOnStop(t *testing.T) {
	en := &scriptedRecognizer{
		flushHyp: hypothesis("buffered fragment", 0.8, "buffered", "fragment"),
	}
	f := newFixture(t, map[string]*scriptedRecognizer{"en": en}, true)
	stop := f.run()
	defer stop()

	f.sess.Start(session.FocusAuto)
	f.queue.Push(make([]byte, 64))

	// Let the frame drain, then stop recording.
	time.Sleep(50 * time.Millisecond)
	f.sess.Stop()

	transcripts := f.waitForTranscripts(t, 1)
	if transcripts[0].Text != "buffered fragment" {
		t.Errorf("Text = %q, want %q", transcripts[0].Text, "buffered fragment")
	}
	if transcripts[0].AudioFile != "" {
		t.Errorf("AudioFile = %q, want empty for flush fragment", transcripts[0].AudioFile)
	}

	stop()
	if _, flushed := en.counts(); flushed != 1 {
		t.Errorf("flushed %d times, want exactly 1 (edge-triggered)", flushed)
	}
}

func TestLoopStopWithoutRecordingDoesNotFlush(t *testing.T) {
	en := &scriptedRecognizer{
		flushHyp: hypothesis("stale", 0.9, "stale"),
	}
	f := newFixture(t, map[string]*scriptedRecognizer{"en": en}, false)
	stop := f.run()

	// Never started recording; idle timeouts must not trigger flushes.
	time.Sleep(60 * time.Millisecond)
	stop()

	if _, flushed := en.counts(); flushed != 0 {
		t.Errorf("flushed %d times with no recording, want 0", flushed)
	}
}

func TestLoopRecordsFlaggedWords(t *testing.T) {
	hyp := &asr.Hypothesis{
		Text: "the zzyzx road",
		Words: []asr.WordConfidence{
			{Word: "the", Confidence: 0.95},
			{Word: "zzyzx", Confidence: 0.3},
			{Word: "road", Confidence: 0.9},
		},
	}
	en := &scriptedRecognizer{script: map[int]*asr.Hypothesis{1: hyp}}
	f := newFixture(t, map[string]*scriptedRecognizer{"en": en}, false)
	stop := f.run()
	defer stop()

	f.sess.Start(session.FocusAuto)
	f.queue.Push(make([]byte, 64))

	f.waitForTranscripts(t, 1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		words, err := f.store.ListUnknownWords()
		if err != nil {
			t.Fatalf("ListUnknownWords() error: %v", err)
		}
		if len(words) == 1 {
			if words[0].Word != "zzyzx" {
				t.Errorf("flagged word = %q, want zzyzx", words[0].Word)
			}
			if words[0].Context != "the zzyzx road" {
				t.Errorf("Context = %q, want corrected transcript", words[0].Context)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for flagged word")
}

func TestLoopFocusExcludesLanguages(t *testing.T) {
	en := &scriptedRecognizer{script: map[int]*asr.Hypothesis{1: hypothesis("hello", 0.9, "hello")}}
	es := &scriptedRecognizer{script: map[int]*asr.Hypothesis{1: hypothesis("hola", 0.9, "hola")}}
	f := newFixture(t, map[string]*scriptedRecognizer{"en": en, "es": es}, false)

	stop := f.run()
	defer stop()

	f.sess.Start("en")
	f.queue.Push(make([]byte, 64))

	f.waitForTranscripts(t, 1)
	stop()

	if accepted, _ := es.counts(); accepted != 0 {
		t.Errorf("excluded recognizer fed %d times, want 0", accepted)
	}
	if accepted, _ := en.counts(); accepted == 0 {
		t.Error("focused recognizer never fed")
	}
}

func TestLoopClipExcludesRejectedUtteranceAudio(t *testing.T) {
	en := &scriptedRecognizer{script: map[int]*asr.Hypothesis{
		1: hypothesis("mumble mumble", 0.2, "mumble", "mumble"),
		2: hypothesis("clear speech", 0.9, "clear", "speech"),
	}}
	f := newFixture(t, map[string]*scriptedRecognizer{"en": en}, true)
	stop := f.run()
	defer stop()

	f.sess.Start(session.FocusAuto)
	f.queue.Push(make([]byte, 64))
	f.queue.Push(make([]byte, 64))

	transcripts := f.waitForTranscripts(t, 1)
	if transcripts[0].Text != "clear speech" {
		t.Fatalf("Text = %q, want %q (low-confidence utterance rejected)",
			transcripts[0].Text, "clear speech")
	}

	clip, err := os.Open(filepath.Join(f.clipsDir, transcripts[0].AudioFile))
	if err != nil {
		t.Fatalf("clip file missing: %v", err)
	}
	defer clip.Close()

	buf, err := wav.NewDecoder(clip).FullPCMBuffer()
	if err != nil {
		t.Fatalf("failed to decode clip: %v", err)
	}
	if len(buf.Data) != 32 {
		t.Errorf("clip holds %d samples, want 32; rejected utterance audio must not carry over",
			len(buf.Data))
	}
}

func TestLoopRemovesClipWhenPersistFails(t *testing.T) {
	en := &scriptedRecognizer{script: map[int]*asr.Hypothesis{
		1: hypothesis("hello", 0.9, "hello"),
	}}
	f := newFixture(t, map[string]*scriptedRecognizer{"en": en}, true)

	// A closed database fails every transcript write.
	if err := f.db.Close(); err != nil {
		t.Fatalf("db.Close() error: %v", err)
	}

	stop := f.run()
	defer stop()

	f.sess.Start(session.FocusAuto)
	f.queue.Push(make([]byte, 64))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if accepted, _ := en.counts(); accepted >= 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	entries, err := os.ReadDir(f.clipsDir)
	if err != nil {
		t.Fatalf("failed to read clips dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("clips dir holds %d files after failed persist, want 0 (no orphans)", len(entries))
	}
}

func TestAppendSegmentCapsBufferedAudio(t *testing.T) {
	segment := make([]byte, maxSegmentBytes)
	frame := []byte{1, 2, 3, 4}

	got := appendSegment(segment, frame)
	if len(got) != maxSegmentBytes {
		t.Fatalf("len = %d, want cap %d", len(got), maxSegmentBytes)
	}
	if !bytes.Equal(got[len(got)-len(frame):], frame) {
		t.Error("capped segment must keep the most recent audio")
	}
}
