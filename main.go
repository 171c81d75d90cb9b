package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"collab-chat-service/internal/auth"
	"collab-chat-service/internal/authz"
	"collab-chat-service/internal/bus"
	"collab-chat-service/internal/db"
	"collab-chat-service/internal/handlers"
	"collab-chat-service/internal/middleware"
	"collab-chat-service/internal/observability"
	"collab-chat-service/internal/rabbitmq"
	"collab-chat-service/internal/repositories"
	"collab-chat-service/internal/telemetry"
	"collab-chat-service/internal/ws"
)

const serviceName = "collab-chat-service"

func main() {
	ctx := context.Background()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	environment := getEnv("ENVIRONMENT", "development")
	shutdownTracing := telemetry.SetupTracing(ctx, serviceName, environment, os.Getenv("OTLP_ENDPOINT"))
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	amqpURL := os.Getenv("AMQP_URL")
	exchange := getEnv("AMQP_EXCHANGE", "platform.events")
	auditPublisher := rabbitmq.NewPublisher(amqpURL, exchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(auditPublisher))

	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, getEnv("AUDIT_ROUTING_KEY", "audit.chat"), serviceName, environment)

	opsPublisher, err := observability.NewAMQPPublisher(amqpURL, exchange)
	if err != nil {
		log.Printf("ops events disabled: %v", err)
	} else {
		observability.SetPublisher(opsPublisher)
		defer opsPublisher.Close()
	}

	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	projectRepo := repositories.NewProjectRepo(database)
	userRepo := repositories.NewUserRepo(database)

	validator := auth.NewValidator(mustEnv("JWT_SECRET"), userRepo)
	authorizer := authz.NewAuthorizer(roomRepo, projectRepo)

	eventBus := newBus()

	chatHandler := handlers.NewChatHandler(roomRepo, messageRepo, projectRepo, userRepo, authorizer, eventBus, auditEmitter)
	chatWS := ws.NewChatSocketHandler(eventBus, validator, authorizer, roomRepo, messageRepo)
	notificationWS := ws.NewNotificationSocketHandler(eventBus, validator)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(validator)

	api := router.Group("/api/chat", authMiddleware)
	api.GET("/rooms", chatHandler.ListRooms)
	api.GET("/rooms/by_project", chatHandler.RoomsByProject)
	api.GET("/rooms/:room_id", chatHandler.GetRoom)
	api.GET("/rooms/:room_id/messages", chatHandler.GetRoomMessages)
	api.POST("/rooms/:room_id/messages", chatHandler.PostRoomMessage)
	api.POST("/rooms/:room_id/read", chatHandler.MarkRoomRead)
	api.POST("/rooms/create_private", chatHandler.CreatePrivateRoom)
	api.GET("/members", chatHandler.ListChatMembers)

	router.GET("/ws/chat/:room_id", chatWS.Handle)
	router.GET("/ws/notifications", notificationWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, os.Getenv("DEBUG_ROUTES") == "true")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// newBus picks the fan-out backend: Redis when configured, in-process
// otherwise.
func newBus() bus.Bus {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Printf("event bus: in-process")
		return bus.NewMemoryBus()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	log.Printf("event bus: redis addr=%s", addr)
	return bus.NewRedisBus(rdb)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("missing required env %s", key)
	}
	return val
}
