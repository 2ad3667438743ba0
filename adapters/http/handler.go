package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/satriahrh/cocoa-chat/domain"
	"github.com/satriahrh/cocoa-chat/usecase"
	"github.com/satriahrh/cocoa-chat/utils/log"
	"go.uber.org/zap"
)

const (
	// JWT settings
	JWTExpiry = 24 * time.Hour
	JWTIssuer = "cocoa-chat"

	// Voice endpoints are expensive; cap how many run at once.
	MaxConcurrentVoice = 10

	// Upper bound for GET /session?wait=true.
	MaxWait = 30 * time.Second

	sessionIDKey = "session_id"
)

type ChatHandler struct {
	chatService *usecase.ChatService
	synthesizer domain.Synthesizer
	transcriber domain.Transcriber
	jwtSecret   []byte
	voiceSlots  chan struct{}
}

type SubmitRequest struct {
	Text string `json:"text"`
}

type SubmitResponse struct {
	Accepted bool                `json:"accepted"`
	State    domain.SessionState `json:"state"`
}

type OpenSessionResponse struct {
	SessionID string              `json:"session_id"`
	Token     string              `json:"token"`
	Type      string              `json:"type"`
	State     domain.SessionState `json:"state"`
}

type AudioResponse struct {
	Transcript string              `json:"transcript"`
	Accepted   bool                `json:"accepted"`
	State      domain.SessionState `json:"state"`
}

type JWTClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// NewChatHandler builds the HTTP surface. synthesizer and transcriber may be
// nil, in which case the voice endpoints answer 501.
func NewChatHandler(chatService *usecase.ChatService, jwtSecret string, synthesizer domain.Synthesizer, transcriber domain.Transcriber) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		synthesizer: synthesizer,
		transcriber: transcriber,
		jwtSecret:   []byte(jwtSecret),
		voiceSlots:  make(chan struct{}, MaxConcurrentVoice),
	}
}

// RegisterRoutes mounts the API under api (usually /api/v1).
func (h *ChatHandler) RegisterRoutes(api *echo.Group) {
	// Public endpoints
	api.GET("/health", h.HealthCheck)
	api.POST("/sessions", h.OpenSession)

	// Session endpoints (JWT required)
	session := api.Group("/session")
	session.Use(h.JWTMiddleware)
	session.GET("", h.GetSession)
	session.DELETE("", h.CloseSession)
	session.POST("/messages", h.SubmitMessage)

	session.POST("/audio", h.SubmitAudio, h.RateLimitMiddleware)
	session.GET("/messages/:index/speech", h.SpeakMessage, h.RateLimitMiddleware)
}

// OpenSession starts a new conversation and hands out the token bound to it.
func (h *ChatHandler) OpenSession(c echo.Context) error {
	ctx := c.Request().Context()
	session := h.chatService.Open(ctx)

	token, err := h.IssueToken(session.ID())
	if err != nil {
		log.WithCtx(log.WithSessionID(ctx, session.ID())).Error("Error signing JWT", zap.Error(err))
		_ = h.chatService.Close(ctx, session.ID())
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusCreated, OpenSessionResponse{
		SessionID: session.ID(),
		Token:     token,
		Type:      "Bearer",
		State:     session.State(),
	})
}

// IssueToken signs a token that identifies sessionID.
func (h *ChatHandler) IssueToken(sessionID string) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    JWTIssuer,
			Subject:   sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

// JWTMiddleware resolves the session from the bearer token. Browsers cannot
// set headers on WebSocket upgrades, so a token query parameter is accepted too.
func (h *ChatHandler) JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return err
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return h.jwtSecret, nil
		}, jwt.WithIssuer(JWTIssuer))
		if err != nil {
			log.With(zap.Error(err)).Debug("JWT validation error")
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok || !token.Valid || claims.SessionID == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token claims")
		}

		if _, err := h.chatService.Session(claims.SessionID); err != nil {
			return sessionError(err)
		}

		c.Set(sessionIDKey, claims.SessionID)
		req := c.Request()
		c.SetRequest(req.WithContext(log.WithSessionID(req.Context(), claims.SessionID)))
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		if q := c.QueryParam("token"); q != "" {
			return q, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || tokenString == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
	}
	return tokenString, nil
}

// SessionID returns the session resolved by JWTMiddleware.
func SessionID(c echo.Context) string {
	id, _ := c.Get(sessionIDKey).(string)
	return id
}

// RateLimitMiddleware bounds concurrent voice requests across all routes it wraps.
func (h *ChatHandler) RateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		select {
		case h.voiceSlots <- struct{}{}:
			defer func() { <-h.voiceSlots }()
			return next(c)
		default:
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many concurrent requests")
		}
	}
}

// GetSession returns the current snapshot. With wait=true it first waits for
// the pending generation, up to MaxWait.
func (h *ChatHandler) GetSession(c echo.Context) error {
	session, err := h.chatService.Session(SessionID(c))
	if err != nil {
		return sessionError(err)
	}

	if wait, _ := strconv.ParseBool(c.QueryParam("wait")); wait {
		ctx, cancel := context.WithTimeout(c.Request().Context(), MaxWait)
		defer cancel()
		if err := session.Wait(ctx); err != nil {
			log.WithCtx(ctx).Debug("Stopped waiting for session", zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, session.State())
}

// SubmitMessage forwards text to the session. Ignored submissions (blank
// text, a pending request, no credential) still answer with the state.
func (h *ChatHandler) SubmitMessage(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	return h.submit(c, req.Text, func(accepted bool, state domain.SessionState) any {
		return SubmitResponse{Accepted: accepted, State: state}
	})
}

func (h *ChatHandler) submit(c echo.Context, text string, body func(bool, domain.SessionState) any) error {
	ctx := c.Request().Context()
	id := SessionID(c)

	accepted, err := h.chatService.Submit(ctx, id, text)
	if err != nil {
		return sessionError(err)
	}
	state, err := h.chatService.State(id)
	if err != nil {
		return sessionError(err)
	}

	log.WithCtx(ctx).Debug("Submission handled", zap.Bool("accepted", accepted))

	status := http.StatusOK
	if accepted {
		status = http.StatusAccepted
	}
	return c.JSON(status, body(accepted, state))
}

func (h *ChatHandler) CloseSession(c echo.Context) error {
	if err := h.chatService.Close(c.Request().Context(), SessionID(c)); err != nil {
		return sessionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SubmitAudio transcribes a LINEAR16 recording and submits the transcript.
func (h *ChatHandler) SubmitAudio(c echo.Context) error {
	if h.transcriber == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "Voice input is disabled")
	}

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, "audio/") && !strings.HasPrefix(contentType, echo.MIMEOctetStream) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid content type. Expected audio/* or application/octet-stream")
	}

	audio, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read audio")
	}
	if len(audio) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Empty audio")
	}

	ctx := c.Request().Context()
	transcript, err := h.transcriber.Transcribe(ctx, audio)
	if err != nil {
		log.WithCtx(ctx).Error("Transcription failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to transcribe audio")
	}

	return h.submit(c, transcript, func(accepted bool, state domain.SessionState) any {
		return AudioResponse{Transcript: transcript, Accepted: accepted, State: state}
	})
}

// SpeakMessage returns the message at :index as MP3 audio.
func (h *ChatHandler) SpeakMessage(c echo.Context) error {
	if h.synthesizer == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "Voice output is disabled")
	}

	state, err := h.chatService.State(SessionID(c))
	if err != nil {
		return sessionError(err)
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 || index >= len(state.Messages) {
		return echo.NewHTTPError(http.StatusNotFound, "Message not found")
	}

	ctx := c.Request().Context()
	audio, err := h.synthesizer.Synthesize(ctx, state.Messages[index].Text)
	if err != nil {
		log.WithCtx(ctx).Error("Speech synthesis failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to synthesize speech")
	}

	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}

// Health check endpoint
func (h *ChatHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":              "healthy",
		"timestamp":           time.Now().UTC(),
		"service":             "cocoa-chat",
		"generator_available": h.chatService.Available(),
		"sessions":            h.chatService.SessionCount(),
	})
}

func sessionError(err error) error {
	if errors.Is(err, usecase.ErrSessionNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Session not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
