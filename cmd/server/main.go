package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vogiaan1904/lobbydraft/config"
	"github.com/vogiaan1904/lobbydraft/internal/access"
	grpcSvc "github.com/vogiaan1904/lobbydraft/internal/delivery/grpc"
	httpSvc "github.com/vogiaan1904/lobbydraft/internal/delivery/http"
	"github.com/vogiaan1904/lobbydraft/internal/delivery/kafka/consumer"
	"github.com/vogiaan1904/lobbydraft/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/lobbydraft/internal/delivery/ws"
	"github.com/vogiaan1904/lobbydraft/internal/infra/redis"
	"github.com/vogiaan1904/lobbydraft/internal/lobbyapi"
	"github.com/vogiaan1904/lobbydraft/internal/metrics"
	"github.com/vogiaan1904/lobbydraft/internal/queue"
	repo "github.com/vogiaan1904/lobbydraft/internal/repository/redis"
	"github.com/vogiaan1904/lobbydraft/internal/roster"
	"github.com/vogiaan1904/lobbydraft/internal/service"
	pkgGrpc "github.com/vogiaan1904/lobbydraft/pkg/grpc"
	pkgKafka "github.com/vogiaan1904/lobbydraft/pkg/kafka"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const clientID = "lobbydraft"

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

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.NewPrometheus(reg, "")
	if err != nil {
		l.Fatalf(ctx, "Failed to register metrics: %v", err)
	}

	// Kafka is optional; without it events only go to Redis subscribers.
	var prod producer.Producer
	var cons *consumer.Consumer
	if cfg.Kafka.Enabled {
		kSyncProd, err := pkgKafka.NewProducer(pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			ClientID:     clientID,
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka producer: %v", err)
		}
		prod = producer.NewProducer(kSyncProd, l)
		defer prod.Close()
		l.Infof(ctx, "Kafka producer connected to brokers: %v", cfg.Kafka.Brokers)
	} else {
		l.Warn(ctx, "Kafka is disabled; domain events will not be published")
	}

	// Collaborators
	api := lobbyapi.New(cfg.LobbyAPI, l)
	rost := roster.New(cfg.Roster, l)
	resolver := access.NewResolver(accessRepo, rost, cfg.Access.SharedScope, l)
	mgr := queue.NewManager(cfg.Queue, l)
	defer mgr.Shutdown()

	// Services
	tokenSvc := service.NewTokenService(cfg.JWT, l)
	accessSvc := service.NewAccessService(accessRepo, l)
	draftSvc := service.NewDraftService(api, draftRepo, prod, updateRepo, m, cfg.Draft, l)
	lobbySvc := service.NewLobbyService(api, draftRepo, resolver, draftSvc, mgr, prod, updateRepo, m, l)
	expiry := service.NewExpiryProcessor(draftRepo, draftSvc, mgr, l, cfg.Draft)

	if cfg.Kafka.Enabled {
		kConsGr, err := pkgKafka.NewConsumer(pkgKafka.ConsumerConfig{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: clientID,
			GroupID:  cfg.Kafka.ConsumerGroupID,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka consumer: %v", err)
		}
		cons = consumer.NewConsumer(kConsGr, lobbySvc, l)
		if err := cons.Start(ctx); err != nil {
			l.Fatalf(ctx, "Failed to start Kafka consumer: %v", err)
		}
	}

	if err := expiry.Start(ctx); err != nil {
		l.Fatalf(ctx, "Failed to start expiry processor: %v", err)
	}

	// gRPC server
	gRpcSrv, healthSrv := pkgGrpc.NewServer(l, grpcSvc.AuthInterceptor(tokenSvc))
	grpcSvc.RegisterLobbyServiceServer(gRpcSrv, grpcSvc.NewGrpcService(lobbySvc, l))
	healthSrv.SetServingStatus(grpcSvc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	lnr, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRpcPort))
	if err != nil {
		l.Fatalf(ctx, "gRPC server failed to listen: %v", err)
	}

	// HTTP server
	feed := ws.NewHandler(updateRepo, lobbySvc, l)
	httpHandler := httpSvc.NewHTTPHandler(accessSvc, lobbySvc, tokenSvc, feed, reg, cfg.Access.SharedScope, l)
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      httpHandler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Infof(ctx, "gRPC server is listening on port: %d", cfg.Server.GRpcPort)
		return gRpcSrv.Serve(lnr)
	})

	g.Go(func() error {
		l.Infof(ctx, "HTTP server is listening on port: %d", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		l.Info(ctx, "Server shutting down...")

		healthSrv.Shutdown()
		if err := expiry.Stop(); err != nil {
			l.Errorf(ctx, "Failed to stop expiry processor: %v", err)
		}
		if cons != nil {
			if err := cons.Close(); err != nil {
				l.Errorf(ctx, "Failed to close Kafka consumer: %v", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			l.Errorf(ctx, "Failed to shut down HTTP server: %v", err)
		}
		gRpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Errorf(ctx, "Server stopped with error: %v", err)
	}

	l.Info(ctx, "Server exited")
}
