package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/logger"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/notify"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

// orderReader loads orders straight from the store.
type orderReader struct {
	store *repository.OrderStore
}

func (r orderReader) Get(ctx context.Context, id string) (*models.Order, error) {
	return r.store.FindByID(ctx, id)
}

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

	log.Info("Starting notifier", zap.String("driver", cfg.Events.Driver))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoRepo.Close(context.Background())

	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()

	db, err := repository.NewMySQL(&cfg.MySQL)
	if err != nil {
		log.Fatal("Failed to connect to MySQL", zap.Error(err))
	}
	users := repository.NewUserRepository(db, redisRepo, log.Named("users"))

	queue, err := events.Open(ctx, cfg.Events, redisRepo, log.Named("events"))
	if err != nil {
		log.Fatal("Failed to open event queue", zap.Error(err))
	}

	system := actor.NewActorSystem()
	notifier := notify.NewNotificationActor(
		orderReader{store: mongoRepo.Orders()},
		users,
		notify.NewMailgunMailer(&cfg.Mailgun),
		redisRepo,
		cfg.Mailgun.From,
		cfg.Notify,
		log.Named("notify"),
	)
	pid, err := system.Root.SpawnNamed(actor.PropsFromProducer(func() actor.Actor { return notifier }), "notification-actor")
	if err != nil {
		log.Fatal("Failed to spawn notification actor", zap.Error(err))
	}

	relayErr := make(chan error, 1)
	go func() {
		relayErr <- notify.Relay(ctx, queue, system.Root, pid)
	}()

	log.Info("Notifier started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Received shutdown signal")
	case err := <-relayErr:
		if err != nil && ctx.Err() == nil {
			log.Error("Event relay stopped", zap.Error(err))
		}
	}

	cancel()
	if err := system.Root.StopFuture(pid).Wait(); err != nil {
		log.Warn("Notification actor did not stop cleanly", zap.Error(err))
	}
	system.Shutdown()

	log.Info("Notifier stopped")
}
