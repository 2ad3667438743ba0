package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/satriahrh/cocoa-chat/domain"
	"github.com/satriahrh/cocoa-chat/utils/log"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// ChatService keeps one ChatSession per connected render surface and
// publishes their snapshots to the message broker.
type ChatService struct {
	backend domain.Backend
	broker  domain.MessageBroker

	mu       sync.RWMutex
	sessions map[string]*ChatSession
}

func NewChatService(backend domain.Backend, broker domain.MessageBroker) *ChatService {
	return &ChatService{
		backend:  backend,
		broker:   broker,
		sessions: make(map[string]*ChatSession),
	}
}

// Available reports whether sessions can reach the generator.
func (s *ChatService) Available() bool {
	return s.backend.IsAvailable()
}

// Open creates a new idle session.
func (s *ChatService) Open(ctx context.Context) *ChatSession {
	id := uuid.NewString()
	session := NewChatSession(id, s.backend, s.publish)

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	log.WithCtx(log.WithSessionID(ctx, id)).Info("Session opened", zap.Bool("generator_available", s.Available()))
	return session
}

func (s *ChatService) Session(id string) (*ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Submit forwards text to the session identified by id. The boolean reports
// whether the submission was accepted.
func (s *ChatService) Submit(ctx context.Context, id, text string) (bool, error) {
	session, err := s.Session(id)
	if err != nil {
		return false, err
	}
	return session.Submit(ctx, text), nil
}

func (s *ChatService) State(id string) (domain.SessionState, error) {
	session, err := s.Session(id)
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.State(), nil
}

// Close forgets the session. A generation still in flight completes but its
// result is no longer reachable.
func (s *ChatService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	log.WithCtx(log.WithSessionID(ctx, id)).Info("Session closed")
	return nil
}

func (s *ChatService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *ChatService) publish(state domain.SessionState) {
	if s.broker == nil {
		return
	}

	ctx := log.WithSessionID(context.Background(), state.SessionID)
	payload, err := json.Marshal(state)
	if err != nil {
		log.WithCtx(ctx).Error("Failed to marshal session state", zap.Error(err))
		return
	}
	if err := s.broker.Publish(ctx, domain.SessionStateTopic, "", payload); err != nil {
		log.WithCtx(ctx).Error("Failed to publish session state", zap.Error(err))
	}
}
