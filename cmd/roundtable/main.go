package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/antoniostano/roundtable/internal/auth"
	"github.com/antoniostano/roundtable/internal/brain"
	"github.com/antoniostano/roundtable/internal/config"
	"github.com/antoniostano/roundtable/internal/httpapi"
	"github.com/antoniostano/roundtable/internal/observability"
	"github.com/antoniostano/roundtable/internal/reply"
	"github.com/antoniostano/roundtable/internal/room"
	"github.com/antoniostano/roundtable/internal/session"
	"github.com/antoniostano/roundtable/internal/voice"
)

func main() {
	// Local development convenience; absence of a .env file is normal.
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := session.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("session store init failed")
	}
	defer store.Close()

	brainAdapter, err := brain.NewAdapter(brain.Config{
		Mode:   cfg.BrainMode,
		APIKey: cfg.OpenAIKey,
		Model:  cfg.OpenAIModel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("brain adapter init failed")
	}

	synthesizer, err := voice.NewSynthesizer(cfg.TTSProvider, voice.StreamElementsConfig{
		BaseURL: cfg.TTSBaseURL,
		Voice:   cfg.TTSVoice,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("tts provider init failed")
	}

	registry := room.NewRegistry()
	pipeline := reply.NewPipeline(brainAdapter, synthesizer, registry, metrics, reply.Config{
		GenerateTimeout:   cfg.ReplyTimeout,
		SynthesizeTimeout: cfg.SynthesisTimeout,
	})
	// The departing synthetic participant abandons its room's reply
	// queue; anything in flight completes as a no-op broadcast.
	registry.SetLeaveHook(func(roomID, _ string, role room.Role) {
		if role == room.RoleSynthetic {
			pipeline.Release(roomID)
		}
	})

	lifecycle := session.NewLifecycle(store)
	relay := room.NewRelay(registry, metrics)
	router := room.NewRouter(registry, pipeline)
	verifier := auth.NewVerifier(cfg.AuthSecret, cfg.AuthIssuer)

	api := httpapi.New(cfg, store, lifecycle, registry, relay, router, pipeline, verifier, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.BindAddr).Msg("roundtable server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	log.Info().Msg("shutdown complete")
}
