package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/satriahrh/cocoa-chat/domain"
	"github.com/satriahrh/cocoa-chat/utils/log"
	"go.uber.org/zap"
)

// Observer receives a snapshot after every state transition.
type Observer func(domain.SessionState)

// ChatSession owns one conversation thread and gates it to a single
// in-flight generation. The zero value is not usable; use NewChatSession.
type ChatSession struct {
	id       string
	gen      domain.Generator
	observer Observer

	// notifyMu is taken before mu is released and held until the observer
	// returns, so snapshots reach the observer in the order they were taken.
	notifyMu sync.Mutex

	mu        sync.Mutex
	version   int64
	messages  []domain.Message
	pending   bool
	lastError string
	idle      chan struct{}
}

// NewChatSession creates an idle session. When the backend is unavailable the
// session starts degraded: LastError reports the reason and Submit is a no-op.
func NewChatSession(id string, backend domain.Backend, observer Observer) *ChatSession {
	s := &ChatSession{
		id:       id,
		observer: observer,
		version:  1,
		idle:     closedChan(),
	}

	gen, err := backend.Generator()
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.gen = gen
	}
	return s
}

func (s *ChatSession) ID() string {
	return s.id
}

// Submit appends text as a user message and starts generating a reply.
// It returns false, leaving the state untouched, when text is blank, a
// request is already pending or no generator is configured.
func (s *ChatSession) Submit(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	s.mu.Lock()
	if s.gen == nil || s.pending {
		s.mu.Unlock()
		return false
	}
	s.messages = append(s.messages, domain.Message{Text: text, Sender: domain.SenderUser})
	s.pending = true
	s.lastError = ""
	s.version++
	done := make(chan struct{})
	s.idle = done
	gen := s.gen
	s.publishLocked()

	ctx = log.WithSessionID(context.WithoutCancel(ctx), s.id)
	go s.generate(ctx, gen, text, done)
	return true
}

func (s *ChatSession) generate(ctx context.Context, gen domain.Generator, prompt string, done chan struct{}) {
	defer close(done)

	reply, err := callGenerator(ctx, gen, prompt)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.resolve(ctx, reply)
}

func callGenerator(ctx context.Context, gen domain.Generator, prompt string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()
	return gen.Generate(ctx, prompt)
}

func (s *ChatSession) resolve(ctx context.Context, reply string) {
	s.mu.Lock()
	s.messages = append(s.messages, domain.Message{Text: reply, Sender: domain.SenderBot})
	s.pending = false
	s.version++
	count := len(s.messages)
	s.publishLocked()

	log.WithCtx(ctx).Debug("Generation resolved", zap.Int("messages", count))
}

func (s *ChatSession) fail(ctx context.Context, err error) {
	failure := domain.NormalizeFailure(err)

	s.mu.Lock()
	s.pending = false
	s.lastError = failure.Error()
	s.version++
	s.publishLocked()

	log.WithCtx(ctx).Warn("Generation failed", zap.Error(failure.Cause), zap.String("last_error", failure.Error()))
}

// State returns a copy of the current state.
func (s *ChatSession) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait blocks until no request is pending or ctx is done.
func (s *ChatSession) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChatSession) snapshotLocked() domain.SessionState {
	messages := make([]domain.Message, len(s.messages))
	copy(messages, s.messages)
	return domain.SessionState{
		SessionID: s.id,
		Version:   s.version,
		Messages:  messages,
		Pending:   s.pending,
		LastError: s.lastError,
	}
}

// publishLocked snapshots the state, releases mu and hands the snapshot to
// the observer. Callers must hold mu; it is unlocked on return.
func (s *ChatSession) publishLocked() {
	snapshot := s.snapshotLocked()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	if s.observer != nil {
		s.observer(snapshot)
	}
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
