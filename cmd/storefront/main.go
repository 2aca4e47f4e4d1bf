package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/catalog"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/grpc"
	"github.com/example/storefront/pkg/logger"
	"github.com/example/storefront/pkg/orders"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting storefront",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	ctx := context.Background()

	// MongoDB
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create indexes", zap.Error(err))
	}

	// Redis
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()

	// MySQL
	db, err := repository.NewMySQL(&cfg.MySQL)
	if err != nil {
		log.Fatal("Failed to connect to MySQL", zap.Error(err))
	}
	users := repository.NewUserRepository(db, redisRepo, log.Named("users"))

	queue, err := events.Open(ctx, cfg.Events, redisRepo, log.Named("events"))
	if err != nil {
		log.Fatal("Failed to open event queue", zap.Error(err))
	}

	verifier, err := payment.New(&cfg.PayPal, log.Named("payment"))
	if err != nil {
		log.Fatal("Failed to create payment verifier", zap.Error(err))
	}

	catalogSvc := catalog.NewService(mongoRepo.Products(), redisRepo, log.Named("catalog"))
	orderSvc := orders.NewService(orders.Deps{
		Store:     mongoRepo.Orders(),
		Catalog:   catalogSvc,
		Users:     users,
		Verifier:  verifier,
		Publisher: queue,
		Policy:    orders.Policy{RequirePaymentBeforeDelivery: cfg.Orders.RequirePaymentBeforeDelivery},
		Logger:    log.Named("orders"),
	})

	gw := gateway.NewGateway(cfg, orderSvc, catalogSvc, auth.NewGuard(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), log.Named("gateway"))
	gw.SetupRoutes()

	health := grpc.NewHealthServer(&cfg.GRPC, cfg.Server.Name, map[string]grpc.Pinger{
		"mongodb": mongoRepo,
		"redis":   redisRepo,
	}, log.Named("health"))

	errCh := make(chan error, 2)
	go func() {
		if err := gw.Start(); err != nil {
			errCh <- fmt.Errorf("gateway: %w", err)
		}
	}()
	go func() {
		if err := health.Start(); err != nil {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()

	// Service discovery is optional
	var sd *discovery.ServiceDiscovery
	instance := &discovery.ServiceInstance{Name: cfg.Server.Name, Host: cfg.Server.Host, Port: cfg.Server.Port}
	regCtx, cancelReg := context.WithCancel(ctx)
	defer cancelReg()
	if cfg.Etcd.Enabled() {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, log.Named("discovery"))
		if err != nil {
			log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else if err := sd.Register(regCtx, instance); err != nil {
			log.Warn("Failed to register service", zap.Error(err))
		} else if peers, err := sd.Discover(regCtx, cfg.Server.Name); err != nil {
			log.Warn("Failed to list service instances", zap.Error(err))
		} else {
			log.Info("Service instances", zap.String("name", cfg.Server.Name), zap.Int("count", len(peers)))
		}
	}

	log.Info("Storefront started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Received shutdown signal")
	case err := <-errCh:
		log.Error("Server error", zap.Error(err))
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if sd != nil {
		if err := sd.Deregister(shutdownCtx, instance); err != nil {
			log.Warn("Failed to deregister service", zap.Error(err))
		}
		sd.Close()
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		log.Error("Gateway shutdown failed", zap.Error(err))
	}
	health.Stop()
	if err := mongoRepo.Close(shutdownCtx); err != nil {
		log.Error("MongoDB disconnect failed", zap.Error(err))
	}

	log.Info("Storefront stopped")
}
