package domain

import (
	"context"
	"errors"
)

// Generator abstracts the text generation provider.
type Generator interface {
	// Generate takes a single prompt and returns the model's reply.
	// Each call is independent; no conversation history is sent.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrMissingCredential is reported when no API key was configured at startup.
var ErrMissingCredential = errors.New("MissingCredential")

// Backend is the process-wide generator handle. It is either available and
// carries a Generator, or unavailable and carries the reason.
type Backend struct {
	gen    Generator
	reason error
}

func Available(gen Generator) Backend {
	return Backend{gen: gen}
}

func Unavailable(reason error) Backend {
	if reason == nil {
		reason = ErrMissingCredential
	}
	return Backend{reason: reason}
}

// Generator returns the generator or the reason it is unavailable.
func (b Backend) Generator() (Generator, error) {
	if b.gen == nil {
		if b.reason == nil {
			return nil, ErrMissingCredential
		}
		return nil, b.reason
	}
	return b.gen, nil
}

func (b Backend) IsAvailable() bool {
	return b.gen != nil
}
