package websocket

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	httpadapter "github.com/satriahrh/cocoa-chat/adapters/http"
	"github.com/satriahrh/cocoa-chat/utils/log"
)

// Handler upgrades /ws for the session resolved by the JWT middleware.
func (s *Server) Handler(c echo.Context) error {
	sessionID := httpadapter.SessionID(c)
	session, err := s.svc.Session(sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Session not found")
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient(conn, sessionID, func(ctx context.Context, text string) (bool, error) {
		return s.svc.Submit(ctx, sessionID, text)
	})
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	client.Run()

	// The render surface starts from the current snapshot. A newer one may
	// already have been forwarded from the broker, in which case this is dropped.
	if err := client.SendState(session.State()); err != nil {
		log.WithCtx(client.Context()).Debug("Initial snapshot not delivered", zap.Error(err))
	}

	<-client.Context().Done()
	return nil
}
