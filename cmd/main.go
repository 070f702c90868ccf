package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/internal/chat"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/service"
	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- auth ---
	pub, err := auth.LoadRSAPublicKeyFromPEM(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("auth public key: %v", err)
	}
	verifier := auth.NewVerifier(pub, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.ClockSkewOr(30*time.Second))

	// --- postgres (optional) ---
	ctx := context.Background()
	var historySvc *service.HistoryService
	var store chat.Store
	if cfg.Postgres.DSN != "" {
		db, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()

		historySvc = service.NewHistoryService(
			postgres.NewMessageRepository(db.Pool),
			postgres.NewReactionRepository(db.Pool),
		)
		store = historySvc
	} else {
		slog.Warn("running without persistence: postgres.dsn is empty")
	}

	// --- dispatcher ---
	dispatcher := chat.NewDispatcher(chat.NewRegistry(), store, logger.L())
	dispatcher.SetTypingTTL(cfg.WS.TypingTTLOr(10 * time.Second))
	dispatcher.SetMaxBody(cfg.WS.MaxBody)

	// --- WS server ---
	wsServer := ws.NewServer(dispatcher, verifier)
	wsServer.SetPingInterval(cfg.WS.PingIntervalOr(15 * time.Second))
	wsServer.SetSendBuffer(cfg.WS.SendBuffer)
	wsServer.SetReadLimit(cfg.WS.MaxMessageSize)

	// --- HTTP ---
	handler := httpx.NewHandler(dispatcher, historySvc)
	router := httpx.NewRouter(handler, verifier, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
