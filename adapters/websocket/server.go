package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/satriahrh/cocoa-chat/domain"
	"github.com/satriahrh/cocoa-chat/usecase"
	"github.com/satriahrh/cocoa-chat/utils/log"
	"go.uber.org/zap"
)

type Server struct {
	upgrader      websocket.Upgrader
	svc           *usecase.ChatService
	messageBroker domain.MessageBroker
	hub           *Hub
}

func NewServer(svc *usecase.ChatService, messageBroker domain.MessageBroker) *Server {
	return &Server{
		upgrader:      websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		svc:           svc,
		messageBroker: messageBroker,
		hub:           NewHub(),
	}
}

// AnnounceShutdown tells every connected client the server is going away.
func (s *Server) AnnounceShutdown() {
	payload, err := json.Marshal(Frame{Type: FrameShutdown, Timestamp: time.Now().UTC()})
	if err != nil {
		log.With(zap.Error(err)).Error("Failed to marshal shutdown frame")
		return
	}
	s.hub.Broadcast(payload)
	log.With(zap.Int("clients", s.hub.ClientCount())).Info("Announced shutdown")
}

// Listen forwards session snapshots from the broker to the clients bound to
// each session. It returns when ctx is done or the broker is closed.
func (s *Server) Listen(ctx context.Context) error {
	messageChan, err := s.messageBroker.Subscribe(ctx, domain.SessionStateTopic, "")
	if err != nil {
		return err
	}

	log.WithCtx(ctx).Info("WebSocket server listening to session updates")

	for {
		select {
		case msg, ok := <-messageChan:
			if !ok {
				log.WithCtx(ctx).Info("Session update stream closed")
				return nil
			}
			s.forward(msg)

		case <-ctx.Done():
			log.WithCtx(ctx).Info("Session update listener stopped")
			return nil
		}
	}
}

func (s *Server) forward(msg domain.Delivery) {
	var state domain.SessionState
	if err := json.Unmarshal(msg.Payload, &state); err != nil {
		log.With(zap.Error(err)).Error("Failed to unmarshal session state")
		return
	}

	// Sessions without a WebSocket client are served over plain HTTP.
	if !s.hub.IsSessionConnected(state.SessionID) {
		return
	}
	if err := s.hub.SendState(state); err != nil {
		log.WithCtx(log.WithSessionID(context.Background(), state.SessionID)).Debug("Session update not delivered", zap.Error(err))
	}
}
