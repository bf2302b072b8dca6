// Package server wires the webhook receiver routes.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pablop76/hikashop-fakturownia/internal/handlers"
	"github.com/pablop76/hikashop-fakturownia/internal/helpers"
)

// WebhookPath is where the shop posts order updates.
const WebhookPath = "/webhooks/hikashop/order-updated"

// Options configure the router.
type Options struct {
	Stage          string
	WebhookToken   string
	AllowedOrigins []string
	Processor      handlers.OrderProcessor
	// Publisher, when set, switches the receiver to queueing mode.
	Publisher handlers.Publisher
	DB        handlers.Pinger
}

// NewRouter builds the gin engine serving the health and webhook routes.
func NewRouter(opts Options) *gin.Engine {
	if opts.Stage == helpers.StageProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handlers.RequestID())
	router.Use(configureCORS(opts.AllowedOrigins))
	if opts.Stage != helpers.StageProd {
		router.Use(handlers.LogRequest())
	}

	health := handlers.NewHealthHandler(opts.DB)
	router.GET("/healthz", health.Health)

	webhook := handlers.NewWebhookHandler(opts.Processor, opts.Publisher)
	router.POST(WebhookPath, handlers.WebhookAuth(opts.WebhookToken), webhook.OrderUpdated)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "not found"})
	})
	return router
}

// configureCORS allows the shop back office to call the receiver.
func configureCORS(origins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", handlers.HeaderWebhookToken, handlers.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{handlers.HeaderRequestID}
	return cors.New(corsConfig)
}
