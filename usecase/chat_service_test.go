package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/cocoa-chat/domain"
)

type recordingBroker struct {
	mu        sync.Mutex
	published []domain.SessionState
}

func (b *recordingBroker) Publish(_ context.Context, topic, _ string, message []byte) error {
	var state domain.SessionState
	if err := json.Unmarshal(message, &state); err != nil {
		return err
	}
	if topic != domain.SessionStateTopic {
		return nil
	}
	b.mu.Lock()
	b.published = append(b.published, state)
	b.mu.Unlock()
	return nil
}

func (b *recordingBroker) Subscribe(context.Context, string, string) (<-chan domain.Delivery, error) {
	return nil, nil
}

func (b *recordingBroker) Close() error { return nil }

func (b *recordingBroker) states() []domain.SessionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.SessionState(nil), b.published...)
}

func TestChatServiceRoundTrip(t *testing.T) {
	gen := newGatedGenerator()
	broker := &recordingBroker{}
	svc := NewChatService(domain.Available(gen), broker)
	ctx := context.Background()

	session := svc.Open(ctx)
	assert.Equal(t, 1, svc.SessionCount())

	accepted, err := svc.Submit(ctx, session.ID(), "Hello")
	require.NoError(t, err)
	require.True(t, accepted)

	gen.replies <- reply{text: "Hi there"}
	waitIdle(t, session)

	state, err := svc.State(session.ID())
	require.NoError(t, err)
	assert.Equal(t, session.ID(), state.SessionID)
	assert.Len(t, state.Messages, 2)

	published := broker.states()
	require.Len(t, published, 2)
	assert.Equal(t, state, published[1])
}

func TestChatServiceUnknownSession(t *testing.T) {
	svc := NewChatService(domain.Available(newGatedGenerator()), nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "nope", "Hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.State("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.Close(ctx, "nope"), ErrSessionNotFound)
}

func TestChatServiceClose(t *testing.T) {
	svc := NewChatService(domain.Unavailable(domain.ErrMissingCredential), nil)
	ctx := context.Background()

	session := svc.Open(ctx)
	require.NoError(t, svc.Close(ctx, session.ID()))
	assert.Equal(t, 0, svc.SessionCount())

	_, err := svc.Session(session.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestChatServiceWithoutCredential(t *testing.T) {
	svc := NewChatService(domain.Unavailable(domain.ErrMissingCredential), &recordingBroker{})
	ctx := context.Background()
	assert.False(t, svc.Available())

	session := svc.Open(ctx)
	accepted, err := svc.Submit(ctx, session.ID(), "hi")
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, "MissingCredential", session.State().LastError)
}
