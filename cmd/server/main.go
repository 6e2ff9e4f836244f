package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/laundry-marketplace/internal/clients"
	"github.com/laundry-marketplace/internal/config"
	"github.com/laundry-marketplace/internal/gateway"
	"github.com/laundry-marketplace/internal/logger"
	"github.com/laundry-marketplace/internal/metrics"
	"github.com/laundry-marketplace/internal/realtime"
	"github.com/laundry-marketplace/internal/repository"
	"github.com/laundry-marketplace/internal/scheduler"
	"github.com/laundry-marketplace/internal/service"
	"github.com/laundry-marketplace/migrations"
	"github.com/laundry-marketplace/pkg/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("Server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Set up database connection
	dbConfig := database.NewPostgresConfig(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
	if cfg.Database.MaxConns > 0 {
		dbConfig.MaxConns = cfg.Database.MaxConns
	}

	db, err := database.NewPostgresDB(ctx, dbConfig)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := migrations.Up(ctx, db.Pool()); err != nil {
			return err
		}
		zl.Info("Database migrations applied")
	}

	// Initialize repositories
	bookingRepo := repository.NewBookingRepository(db)
	shopRepo := repository.NewShopRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	tokenRepo := repository.NewDeviceTokenRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Realtime layer
	router := realtime.NewRouter(zl, m)
	hub := realtime.NewHub(router, realtime.NewRegistry(), tokenRepo, zl, m)

	var emitter service.Emitter = router
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		relay := realtime.NewRelay(router, rdb, cfg.Redis.Channel, zl)
		hub.SetEmitter(relay)
		hub.SetCluster(realtime.NewRedisPresence(rdb, cfg.Redis.Channel+":presence"))
		emitter = relay
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("Realtime relay stopped", zap.Error(err))
			}
		}()
	}

	var pusher service.Pusher = clients.NewLogPusher(zl)
	if cfg.Push.CredentialsFile != "" {
		fcm, err := clients.NewFCMClient(ctx, cfg.Push.CredentialsFile, zl)
		if err != nil {
			return err
		}
		pusher = fcm
	}

	payMongo, err := clients.NewPayMongoClient(clients.PayMongoConfig{
		Mode:       cfg.PayMongo.Mode,
		SecretKey:  cfg.PayMongo.SecretKey,
		SuccessURL: cfg.PayMongo.SuccessURL,
		CancelURL:  cfg.PayMongo.CancelURL,
		Timeout:    cfg.PayMongo.Timeout,
	}, zl)
	if err != nil {
		return err
	}

	// Initialize services
	dispatcher := service.NewNotificationDispatcher(notificationRepo, tokenRepo, pusher, cfg.Push.Timeout, zl, m)
	broadcaster := service.NewEventBroadcaster(emitter, shopRepo, zl)
	notifier := service.NewNotifier(dispatcher, broadcaster, zl)

	bookingService := service.NewBookingService(bookingRepo, broadcaster, notifier, loc, zl, m)
	deliveryService := service.NewDeliveryService(deliveryRepo, bookingRepo, broadcaster, notifier, zl, m)
	notificationService := service.NewNotificationService(notificationRepo, tokenRepo, shopRepo, notifier)
	chatService := service.NewChatService(messageRepo, hub)
	paymentService := service.NewPaymentService(payMongo, zl)

	timeout := cfg.Server.RequestTimeout
	engine := gateway.NewRouter(gateway.RouterConfig{
		Logger:         zl,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       reg,
		Socket:         realtime.NewHandler(hub, zl, cfg.Server.AllowedOrigins),
		Health:         db.Ping,
		Handlers: []gateway.RouteRegistrar{
			gateway.NewBookingHandler(bookingService, timeout, zl),
			gateway.NewDeliveryHandler(deliveryService, timeout, zl),
			gateway.NewNotificationHandler(notificationService, timeout, zl),
			gateway.NewMessageHandler(chatService, timeout, zl),
			gateway.NewPaymentHandler(paymentService, payMongo.Mode(), timeout, zl),
			gateway.NewRealtimeHandler(hub),
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		zl.Info("HTTP server started", zap.Int("port", cfg.Server.Port), zap.String("paymentMode", payMongo.Mode()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
		if err != nil {
			return fmt.Errorf("failed to listen on port %d: %w", cfg.GRPC.Port, err)
		}

		grpcServer = grpc.NewServer()
		healthServer := health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		reflection.Register(grpcServer)

		go func() {
			zl.Info("gRPC health server started", zap.Int("port", cfg.GRPC.Port))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(tokenRepo, scheduler.Config{
			PruneSpec:      cfg.Scheduler.PruneSpec,
			TokenRetention: cfg.Scheduler.TokenRetention,
		}, zl)
		if err != nil {
			return err
		}
		sched.Start()
	}

	// Wait for termination signal or a server failure
	var runErr error
	select {
	case <-ctx.Done():
		zl.Info("Received signal, stopping server")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("Timeout during graceful shutdown, forcing close", zap.Error(err))
		_ = srv.Close()
	}

	if grpcServer != nil {
		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()

		select {
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		case <-done:
		}
	}

	zl.Info("Server stopped")
	return runErr
}
