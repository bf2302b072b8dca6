package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/app"
	"github.com/pablop76/hikashop-fakturownia/internal/helpers"
	"github.com/pablop76/hikashop-fakturownia/internal/logger"
	"github.com/pablop76/hikashop-fakturownia/internal/server"
)

var ginLambda *ginadapter.GinLambda

// Handler proxies API Gateway requests to the gin router.
func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger.Debug("Received Lambda request", zap.String("path", req.Path), zap.String("method", req.HTTPMethod))
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	ctx := context.Background()

	cfg, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("webhook receiver: %v", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	publisher, err := a.Publisher(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize order event publisher", zap.Error(err))
	}

	router := server.NewRouter(server.Options{
		Stage:          cfg.Stage,
		WebhookToken:   cfg.Server.WebhookToken,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Processor:      a.Processor,
		Publisher:      publisher,
		DB:             a.Store,
	})

	if cfg.Stage != helpers.StageLocal {
		ginLambda = ginadapter.New(router)
		lambda.Start(Handler)
		return
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort()),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
	}
	go func() {
		logger.Info("Webhook receiver listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down webhook receiver")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}
