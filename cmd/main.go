/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lingualabs/lingua-hub/internal/arbiter"
	"github.com/lingualabs/lingua-hub/internal/asr"
	"github.com/lingualabs/lingua-hub/internal/audio"
	"github.com/lingualabs/lingua-hub/internal/config"
	"github.com/lingualabs/lingua-hub/internal/logging"
	"github.com/lingualabs/lingua-hub/internal/messaging"
	"github.com/lingualabs/lingua-hub/internal/pipeline"
	"github.com/lingualabs/lingua-hub/internal/session"
	"github.com/lingualabs/lingua-hub/internal/validate"
	"github.com/lingualabs/lingua-hub/internal/vocab"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.InitializeWithConfig(logging.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	if err := run(cfg); err != nil {
		logging.LogError(err, "lingua-hub failed")
		logging.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	db, err := vocab.OpenDatabase(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	corrector := vocab.NewCorrector(nil, cfg.Corrector.MinSimilarity)
	store := vocab.NewStore(db, corrector)

	pool, err := buildPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	clips, err := audio.NewClipStore(cfg.Clips.Dir, cfg.Audio.SampleRate)
	if err != nil {
		return err
	}

	publisher, err := messaging.Connect(cfg.NATS)
	if err != nil {
		// Transcription works without the broker; degrade, don't die.
		logging.LogWarn("Continuing without NATS publishing", zap.Error(err))
		publisher = nil
	}
	defer publisher.Close()

	sess := session.New(pool.Languages())
	focus := cfg.Session.Focus
	queue := audio.NewFrameQueue(cfg.Audio.QueueCapacity)

	capture, err := audio.NewCapture(cfg.Audio.SampleRate, cfg.Audio.FrameSize, func(pcm []byte) {
		if sess.Recording() {
			queue.Push(pcm)
		}
	})
	if err != nil {
		return err
	}
	defer capture.Close()

	arb := arbiter.New(arbiter.Config{
		LiveMinConfidence:  cfg.Arbiter.LiveMinConfidence,
		FlushMinConfidence: cfg.Arbiter.FlushMinConfidence,
		StopWordBonus:      cfg.Arbiter.StopWordBonus,
		UnknownWordBelow:   cfg.Arbiter.UnknownWordBelow,
	}, nil)

	loop := pipeline.New(queue, pool, arb, sess, store, clips, publisher, cfg.Audio.PollTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()

	if cfg.Validation.URL != "" {
		client := validate.NewClient(cfg.Validation.URL, cfg.Validation.Timeout, store)
		go runValidation(ctx, client, cfg.Validation.Interval)
	}

	if err := capture.Start(); err != nil {
		return err
	}
	sess.Start(focus)

	logging.Sugar.Infow("lingua-hub running",
		"languages", pool.Languages(),
		"sample_rate", cfg.Audio.SampleRate,
		"frame_size", cfg.Audio.FrameSize,
		"db_path", cfg.Store.Path,
		"clips_dir", cfg.Clips.Dir)

	// SIGUSR1 toggles recording; SIGINT/SIGTERM shut down.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	for sig := range signals {
		if sig == syscall.SIGUSR1 {
			if sess.Recording() {
				sess.Stop()
			} else {
				sess.Start(focus)
			}
			continue
		}
		logging.Sugar.Infow("Shutting down", "signal", sig.String())
		break
	}

	// Stop recording first so the loop drains the queue and flushes the
	// recognizers before the context goes away.
	sess.Stop()
	if err := capture.Stop(); err != nil {
		logging.LogError(err, "Failed to stop capture")
	}
	time.Sleep(2 * cfg.Audio.PollTimeout)

	cancel()
	<-loopDone
	return nil
}

// runValidation triggers a validation cycle on every tick until the
// context is cancelled. Cycle errors are already logged by the client.
func runValidation(ctx context.Context, client *validate.Client, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = client.Run(ctx)
		}
	}
}

// buildPool discovers language models and loads one recognizer per
// language. A language whose model fails to load is skipped; an empty
// pool is fatal.
func buildPool(cfg *config.Config) (*asr.Pool, error) {
	models := asr.DiscoverModels(cfg.Models.Root, cfg.Models.Languages, asr.DefaultModelCandidates())

	pool := asr.NewPool()
	for _, lang := range cfg.Models.Languages {
		path, ok := models[lang]
		if !ok {
			continue
		}

		rec, err := asr.NewRecognizer(path, float64(cfg.Audio.SampleRate))
		if err != nil {
			logging.LogError(err, "Failed to load recognizer", zap.String("language", lang))
			continue
		}
		if err := pool.Add(lang, rec); err != nil {
			rec.Close()
			logging.LogError(err, "Failed to register recognizer", zap.String("language", lang))
			continue
		}
		logging.LogRecognizer(lang, "loaded", zap.String("model", path))
	}

	if pool.Len() == 0 {
		return nil, errors.New("no recognizers loaded: check model directories and build tags")
	}
	return pool, nil
}
