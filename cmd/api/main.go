package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/acaidoheitor/orders-api/internal/aws"
	"github.com/acaidoheitor/orders-api/internal/config"
	"github.com/acaidoheitor/orders-api/internal/handlers"
	"github.com/acaidoheitor/orders-api/internal/metrics"
	"github.com/acaidoheitor/orders-api/internal/notify"
	"github.com/acaidoheitor/orders-api/internal/orders"
	"github.com/acaidoheitor/orders-api/internal/schedule"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	handlers.RegisterRoutes(r, cfg)

	return r
}

func main() {
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.BusinessTZ)
	if err != nil {
		log.Fatalf("invalid BUSINESS_TZ %q: %v", cfg.BusinessTZ, err)
	}

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	publisher := metrics.NewPublisher(clients.CloudWatch, "AcaiOrders")

	var dispatcher *notify.Dispatcher
	if cfg.WhatsApp.Enabled && cfg.WhatsApp.Token != "" && cfg.WhatsApp.PhoneID != "" {
		client := notify.NewClient(cfg.WhatsApp.Token, cfg.WhatsApp.PhoneID)
		dispatcher = notify.NewDispatcher(client, notify.DefaultPolicy(), publisher)
	}

	r := setupRouter(handlers.HandlerConfig{
		Orders:   orders.NewStore(clients.DynamoDB, cfg.OrdersTable),
		Schedule: schedule.NewService(schedule.NewStore(clients.DynamoDB, cfg.ConfigTable), loc),
		Notifier: dispatcher,
		Metrics:  publisher,
		Location: loc,
	})

	// Inside Lambda the runtime sets AWS_LAMBDA_FUNCTION_NAME; everywhere
	// else we serve plain HTTP on PORT.
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		adapter := ginadapter.New(r)
		lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
			return adapter.ProxyWithContext(ctx, req)
		})
		return
	}

	addr := ":" + cfg.Port
	log.Printf("servidor rodando na porta %s", cfg.Port)
	if err := r.Run(addr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
