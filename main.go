package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/satriahrh/cocoa-chat/adapters/hasher"
	httpadapter "github.com/satriahrh/cocoa-chat/adapters/http"
	"github.com/satriahrh/cocoa-chat/adapters/llm"
	"github.com/satriahrh/cocoa-chat/adapters/message_broker"
	"github.com/satriahrh/cocoa-chat/adapters/speech"
	"github.com/satriahrh/cocoa-chat/adapters/tts"
	"github.com/satriahrh/cocoa-chat/adapters/websocket"
	"github.com/satriahrh/cocoa-chat/config"
	"github.com/satriahrh/cocoa-chat/domain"
	"github.com/satriahrh/cocoa-chat/usecase"
	"github.com/satriahrh/cocoa-chat/utils/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = gotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.With(zap.Error(err)).Fatal("Invalid configuration")
	}
	log.Configure(cfg.Debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.With(
		zap.String("addr", cfg.Addr),
		zap.String("model", cfg.GeminiModel),
		zap.String("api_key_fingerprint", domain.Fingerprint(hasher.New(), cfg.GeminiAPIKey)),
		zap.Bool("voice", cfg.VoiceEnabled),
	).Info("Configuration loaded")

	backend := llm.SharedBackend(ctx, cfg)
	broker := message_broker.NewChannelMessageBroker()
	defer broker.Close()

	svc := usecase.NewChatService(backend, broker)
	synthesizer, transcriber, voiceClosers := newVoice(ctx, cfg)
	defer closeAll(ctx, voiceClosers)

	chatHandler := httpadapter.NewChatHandler(svc, cfg.JWTSecret, synthesizer, transcriber)
	server := websocket.NewServer(svc, broker)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
		MaxAge: 86400,
	}))
	e.Use(middleware.BodyLimit("10MB"))

	e.GET("/ws", server.Handler, chatHandler.JWTMiddleware)
	chatHandler.RegisterRoutes(e.Group("/api/v1"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Listen(gctx)
	})
	g.Go(func() error {
		log.With(zap.String("addr", cfg.Addr)).Info("Starting server")
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.WithCtx(ctx).Info("Shutting down")
		server.AnnounceShutdown()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.With(zap.Error(err)).Fatal("Server stopped")
	}
}

// newVoice builds the Google speech adapters when voice is enabled. Voice
// is optional: a failing client only disables its endpoint. The returned
// closers release the clients that were created.
func newVoice(ctx context.Context, cfg config.Config) (domain.Synthesizer, domain.Transcriber, []io.Closer) {
	if !cfg.VoiceEnabled {
		return nil, nil, nil
	}

	var synthesizer domain.Synthesizer
	var transcriber domain.Transcriber
	var closers []io.Closer

	if googleTTS, err := tts.NewGoogleTTS(ctx, cfg.VoiceLanguage); err != nil {
		log.With(zap.Error(err)).Error("Voice output disabled")
	} else {
		synthesizer = googleTTS
		closers = append(closers, googleTTS)
	}

	if googleSpeech, err := speech.NewGoogleSpeech(ctx, cfg.VoiceLanguage); err != nil {
		log.With(zap.Error(err)).Error("Voice input disabled")
	} else {
		transcriber = googleSpeech
		closers = append(closers, googleSpeech)
	}

	return synthesizer, transcriber, closers
}

// closeAll closes every closer, logging and collecting failures.
func closeAll(ctx context.Context, closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.WithCtx(ctx).Error("Failed to close client", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
