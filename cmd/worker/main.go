package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/orderflow/order-service/internal/config"
	"github.com/orderflow/order-service/internal/logger"
	"github.com/orderflow/order-service/internal/notify"
	"github.com/orderflow/order-service/internal/queue"
	"github.com/orderflow/order-service/internal/repo"
	"github.com/orderflow/order-service/internal/worker"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/go-redis/redis/v8"
)

func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ch := queue.NewKafka(cfg.Kafka, log)
	defer ch.Close()

	repository := repo.NewRepository(gdb, rdb, log)
	notifier := notify.NewClient(cfg.Notify.BaseURL, log)
	consumer := worker.NewConsumer(repository, notifier, log,
		time.Duration(cfg.Worker.ProcessingDelaySec)*time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("order worker started")
	ch.Run(ctx, consumer.Handle)
	log.Info("order worker stopped")
}
