package stt

import "context"

type Provider interface {
	// Transcribe returns the best alternative for audio encoded as contentType.
	Transcribe(ctx context.Context, audio []byte, contentType, language string) (text string, confidence float64, err error)
	Close() error
}
