package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/app"
	"github.com/pablop76/hikashop-fakturownia/internal/kafka"
	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("order consumer: %v", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("order consumer: KAFKA_BROKERS is required")
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	logger.Info("Kafka consumer starting",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.GroupID))

	consumer := kafka.NewConsumer(kafka.NewReader(cfg.Kafka), a.Processor, logger.Log)
	if err := consumer.Run(ctx); err != nil {
		logger.Error("Kafka consumer stopped", zap.Error(err))
		return
	}
	logger.Info("Kafka consumer stopped")
}
