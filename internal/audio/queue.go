/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

// Package audio owns microphone capture, the frame queue bridging capture
// and transcription, and audio clip persistence.
package audio

import "time"

// FrameQueue is the single hand-off point between the real-time capture
// callback (producer) and the transcription loop (consumer). While
// recording, frames are never dropped: a full queue blocks the push
// instead, because lost audio becomes silent transcript loss.
type FrameQueue struct {
	frames chan []byte
}

// NewFrameQueue creates a bounded frame queue.
func NewFrameQueue(capacity int) *FrameQueue {
	return &FrameQueue{
		frames: make(chan []byte, capacity),
	}
}

// Push copies the frame and enqueues it. The copy matters: capture reuses
// its buffer for the next frame.
func (q *FrameQueue) Push(frame []byte) {
	buf := make([]byte, len(frame))
	copy(buf, frame)
	q.frames <- buf
}

// Pop dequeues one frame, waiting up to timeout. The second return is
// false when the timeout elapsed with no data; that absence is the loop's
// only idle signal.
func (q *FrameQueue) Pop(timeout time.Duration) ([]byte, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame := <-q.frames:
		return frame, true
	case <-timer.C:
		return nil, false
	}
}

// Len returns the number of buffered frames.
func (q *FrameQueue) Len() int {
	return len(q.frames)
}
