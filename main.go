package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"food-delivery/panel/backend"
	"food-delivery/panel/chat"
	"food-delivery/panel/config"
	_ "food-delivery/panel/docs"
	"food-delivery/panel/events"
	"food-delivery/panel/handlers"
	"food-delivery/panel/imagegen"
	"food-delivery/panel/models"
	"food-delivery/panel/orders"
	"food-delivery/panel/realtime"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	producer, err := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Fatal("Failed to initialize connections:", err)
	}
	defer producer.Close()

	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	controller := orders.NewController(backendClient)
	controller.OnTransition(func(order models.Order, from, to models.OrderStatus) {
		handlers.RecordTransition(string(to))
		producer.LogEvent(map[string]interface{}{
			"event":    "order_transition",
			"order_id": order.ID,
			"from":     from,
			"to":       to,
		})
	})

	channel, err := buildChannel(cfg)
	if err != nil {
		log.Fatal("Failed to build realtime channel:", err)
	}

	engine := chat.NewEngine(backendClient, channel, cfg.Realtime.SenderID)

	generator := imagegen.NewGenerator(cfg.ImageAPI.URL, cfg.ImageAPI.Key, cfg.ImageAPI.Size, rdb)

	server := handlers.NewServer(rdb, backendClient, controller, engine, generator)

	engine.SetNotify(func(chatID int, msg models.Message) {
		if msg.IsSender {
			handlers.RecordMessageSent()
			producer.LogEvent(map[string]interface{}{
				"event":      "chat_message_sent",
				"chat_id":    chatID,
				"message_id": msg.ID,
			})
		} else {
			handlers.RecordPush()
		}
		server.NotifyMessage(chatID, msg)
	})
	engine.SetStateNotify(server.NotifyConnectionState)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(handlers.MetricsMiddleware())

	app.Get("/health", healthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/swagger/*", swagger.HandlerDefault)

	server.SetupRoutes(app)

	app.Get("/ws", websocket.New(server.HandleWebSocket))

	controller.Start(ctx)
	defer controller.Stop()

	if err := engine.Start(ctx); err != nil {
		log.Printf("Realtime channel unavailable: %v", err)
	}
	defer engine.Stop()

	if _, err := engine.LoadChats(ctx); err != nil {
		log.Printf("Initial chat list load failed: %v", err)
	}

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	log.Printf("Panel server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func buildChannel(cfg *config.Config) (chat.Channel, error) {
	switch cfg.Realtime.Transport {
	case "websocket":
		return realtime.NewWebSocketChannel(cfg.Realtime.WSURL), nil
	case "amqp":
		return realtime.NewAMQPChannel(cfg.Realtime.AMQPURL, cfg.Realtime.Queue), nil
	default:
		return nil, fmt.Errorf("unknown realtime transport %q", cfg.Realtime.Transport)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}
