package domain

import (
	"errors"
	"strings"
)

const genericFailureMessage = "Failed to get a response from the model"

// GenerationFailure is the only error shape that leaves the Generator
// boundary. Adapters normalize whatever their client returns into it.
type GenerationFailure struct {
	Message string
	Cause   error
}

func (f *GenerationFailure) Error() string {
	return "Error: " + f.Message
}

func (f *GenerationFailure) Unwrap() error {
	return f.Cause
}

// NormalizeFailure maps any error into a GenerationFailure. An error that is
// already a GenerationFailure is returned as is.
func NormalizeFailure(err error) *GenerationFailure {
	if err == nil {
		return nil
	}

	var failure *GenerationFailure
	if errors.As(err, &failure) {
		if strings.TrimSpace(failure.Message) == "" {
			return &GenerationFailure{Message: genericFailureMessage, Cause: failure.Cause}
		}
		return failure
	}

	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = genericFailureMessage
	}
	return &GenerationFailure{Message: msg, Cause: err}
}

// FailureFromMessage builds a GenerationFailure from a provider message,
// falling back to the generic text when the provider gave none.
func FailureFromMessage(msg string, cause error) *GenerationFailure {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = genericFailureMessage
	}
	return &GenerationFailure{Message: msg, Cause: cause}
}
