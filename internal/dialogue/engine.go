// Package dialogue drives the scripted payment-reminder conversation.
// Speech recognition, synthesis, and understanding live behind the Engine
// interface; this package only sequences turns.
package dialogue

import (
	"context"
	"time"
)

// Utterance is one transcribed stretch of callee speech.
type Utterance struct {
	Text string
}

// Engine is the composed voice pipeline (STT + TTS + VAD + understanding)
// attached to the call's room.
type Engine interface {
	// WaitForConnection blocks until the audio path is ready to carry
	// speech in both directions.
	WaitForConnection(ctx context.Context) error

	// Say speaks text to the callee and returns once playback is queued.
	Say(ctx context.Context, text string) error

	// Listen waits up to timeout for callee speech. A timeout is not an
	// error: it returns (nil, nil). A non-nil error means the engine
	// itself failed.
	Listen(ctx context.Context, timeout time.Duration) (*Utterance, error)
}
