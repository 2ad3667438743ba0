package domain

import "context"

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry of a conversation thread. It is never mutated after
// being appended to a session log.
type Message struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// SessionState is a point-in-time snapshot of a chat session. Version grows
// with every transition; a snapshot with a lower Version is stale.
type SessionState struct {
	SessionID string    `json:"session_id"`
	Version   int64     `json:"version"`
	Messages  []Message `json:"messages"`
	Pending   bool      `json:"pending"`
	LastError string    `json:"last_error,omitempty"`
}

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
