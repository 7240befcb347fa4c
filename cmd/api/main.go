package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vogiaan1904/lobbydraft/config"
	"github.com/vogiaan1904/lobbydraft/internal/access"
	httpSvc "github.com/vogiaan1904/lobbydraft/internal/delivery/http"
	"github.com/vogiaan1904/lobbydraft/internal/delivery/ws"
	"github.com/vogiaan1904/lobbydraft/internal/infra/redis"
	"github.com/vogiaan1904/lobbydraft/internal/lobbyapi"
	"github.com/vogiaan1904/lobbydraft/internal/metrics"
	"github.com/vogiaan1904/lobbydraft/internal/queue"
	repo "github.com/vogiaan1904/lobbydraft/internal/repository/redis"
	"github.com/vogiaan1904/lobbydraft/internal/roster"
	"github.com/vogiaan1904/lobbydraft/internal/service"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

// The admin API serves access-control CRUD, access checks and the live lobby
// feed. It never mutates lobbies, so it runs without Kafka or the expiry
// processor and can be scaled separately from cmd/server.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})

	redisCli, err := redis.Connect(ctx, cfg.Redis, l)
	if err != nil {
		l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
	}
	defer redis.Disconnect(context.Background(), redisCli, l)

	accessRepo := repo.NewRedisAccessRepository(redisCli, l)
	draftRepo := repo.NewRedisDraftRepository(redisCli, cfg.Draft.RecordTTL, l)
	updateRepo := repo.NewRedisUpdateRepository(redisCli, l)

	reg := prometheus.NewRegistry()
	m, err := metrics.NewPrometheus(reg, "")
	if err != nil {
		l.Fatalf(ctx, "Failed to register metrics: %v", err)
	}

	api := lobbyapi.New(cfg.LobbyAPI, l)
	resolver := access.NewResolver(accessRepo, roster.New(cfg.Roster, l), cfg.Access.SharedScope, l)
	mgr := queue.NewManager(cfg.Queue, l)
	defer mgr.Shutdown()

	tokenSvc := service.NewTokenService(cfg.JWT, l)
	accessSvc := service.NewAccessService(accessRepo, l)
	draftSvc := service.NewDraftService(api, draftRepo, nil, updateRepo, m, cfg.Draft, l)
	lobbySvc := service.NewLobbyService(api, draftRepo, resolver, draftSvc, mgr, nil, updateRepo, m, l)

	feed := ws.NewHandler(updateRepo, lobbySvc, l)
	h := httpSvc.NewHTTPHandler(accessSvc, lobbySvc, tokenSvc, feed, reg, cfg.Access.SharedScope, l)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      h.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		l.Infof(ctx, "HTTP server is listening on port: %d", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			l.Fatalf(ctx, "Failed to serve HTTP: %v", err)
		}
	}()

	<-ctx.Done()
	l.Info(ctx, "Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Errorf(ctx, "Failed to shut down HTTP server: %v", err)
	}

	l.Info(ctx, "Server exited")
}
