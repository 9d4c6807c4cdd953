/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const (
	// Channels is mono; the recognizers expect single-channel audio.
	Channels = 1
	// BytesPerSample for 16-bit PCM.
	BytesPerSample = 2
)

// Capture drives the default input device and invokes a callback with each
// fixed-size frame as 16-bit little-endian PCM. The callback runs on the
// portaudio thread and must never block.
type Capture struct {
	stream  *portaudio.Stream
	onFrame func(pcm []byte)
}

// NewCapture opens the default input stream. The caller starts and stops
// the stream explicitly.
func NewCapture(sampleRate, frameSize int, onFrame func(pcm []byte)) (*Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	c := &Capture{onFrame: onFrame}

	stream, err := portaudio.OpenDefaultStream(Channels, 0, float64(sampleRate), frameSize, c.callback)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open capture stream: %w", err)
	}
	c.stream = stream

	return c, nil
}

func (c *Capture) callback(in []int16) {
	pcm := make([]byte, len(in)*BytesPerSample)
	for i, sample := range in {
		binary.LittleEndian.PutUint16(pcm[i*BytesPerSample:], uint16(sample))
	}
	c.onFrame(pcm)
}

// Start begins delivering frames to the callback.
func (c *Capture) Start() error {
	return c.stream.Start()
}

// Stop pauses frame delivery.
func (c *Capture) Stop() error {
	return c.stream.Stop()
}

// Close releases the stream and portaudio.
func (c *Capture) Close() error {
	err := c.stream.Close()
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}
