/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ClipStore writes winning live chunks to disk as mono 16-bit WAV files.
// The returned filename is the transcript's audio reference.
type ClipStore struct {
	dir        string
	sampleRate int
}

// NewClipStore creates the clips directory if needed.
func NewClipStore(dir string, sampleRate int) (*ClipStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create clips directory: %w", err)
	}

	return &ClipStore{
		dir:        dir,
		sampleRate: sampleRate,
	}, nil
}

// Save writes one PCM16 chunk as a timestamp-named WAV file and returns
// the filename relative to the clips directory.
func (s *ClipStore) Save(language string, pcm []byte) (string, error) {
	now := time.Now()
	filename := fmt.Sprintf("%s_%s_%09d.wav", language, now.Format("20060102_150405"), now.Nanosecond())
	path := filepath.Join(s.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create clip file: %w", err)
	}

	enc := wav.NewEncoder(f, s.sampleRate, 16, Channels, 1)

	samples := make([]int, len(pcm)/BytesPerSample)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*BytesPerSample:])))
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: Channels,
			SampleRate:  s.sampleRate,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return "", fmt.Errorf("failed to write clip samples: %w", err)
	}

	if err := enc.Close(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to finalize clip: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close clip file: %w", err)
	}

	return filename, nil
}

// Remove deletes a previously saved clip by its filename.
func (s *ClipStore) Remove(name string) error {
	return os.Remove(filepath.Join(s.dir, name))
}

// Dir returns the clips directory path.
func (s *ClipStore) Dir() string {
	return s.dir
}
