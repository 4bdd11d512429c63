package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/crowdqueue/backend/internal/auth"
	"github.com/crowdqueue/backend/internal/queue"
	"github.com/crowdqueue/backend/internal/spotify"
	"github.com/crowdqueue/backend/pkg/database"
	"github.com/crowdqueue/backend/pkg/events"
	"github.com/crowdqueue/backend/pkg/redis"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize MySQL database (users + play history)
	db, err := database.NewMySQLDB(
		os.Getenv("MYSQL_HOST"),
		os.Getenv("MYSQL_PORT"),
		os.Getenv("MYSQL_USER"),
		os.Getenv("MYSQL_PASSWORD"),
		os.Getenv("MYSQL_DATABASE"),
	)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Initialize Redis client
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     os.Getenv("REDIS_HOST") + ":" + os.Getenv("REDIS_PORT"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	// Initialize Kafka client (optional: no brokers means no event stream)
	var kafkaClient *events.KafkaClient
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaClient = events.NewKafkaClient(strings.Split(brokers, ","), "queue-events")
	} else {
		log.Printf("Warning: KAFKA_BROKERS not set, event publishing disabled")
	}

	spotifyClient := spotify.NewClient(
		os.Getenv("SPOTIFY_CLIENT_ID"),
		os.Getenv("SPOTIFY_CLIENT_SECRET"),
		os.Getenv("SPOTIFY_REDIRECT_URI"),
	)

	tokenStore := redis.NewTokenStore(redisClient)

	// Pick the queue store backend. Memory is only safe on a single
	// instance; any scaled-out deployment must share state through Redis.
	var queueStore queue.Store
	switch backend := os.Getenv("QUEUE_BACKEND"); backend {
	case "", "redis":
		queueStore = redis.NewQueueStore(redisClient)
	case "memory":
		queueStore = queue.NewMemoryStore()
		log.Printf("Warning: using in-memory queue store, state is lost on restart")
	default:
		log.Fatalf("Unknown QUEUE_BACKEND %q", backend)
	}

	capacity := queue.DefaultCapacity
	if raw := os.Getenv("QUEUE_MAX_TRACKS"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			log.Fatalf("Invalid QUEUE_MAX_TRACKS %q", raw)
		}
		capacity = parsed
	}

	queueService := queue.NewService(queueStore, capacity, kafkaClient, db)

	// Initialize handlers
	authHandler := auth.NewHandler(spotifyClient, tokenStore, db)
	queueHandler := queue.NewHandler(queueService, db)
	spotifyHandler := spotify.NewHandler(spotifyClient, queueService)

	// Initialize Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(envOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	authHandler.RegisterRoutes(v1)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(auth.AuthMiddleware(tokenStore))
	{
		queueHandler.RegisterRoutes(protected)
		spotifyHandler.RegisterRoutes(protected)
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	serveErr := router.Run(":" + port)

	if kafkaClient != nil {
		if err := kafkaClient.Close(); err != nil {
			log.Printf("Warning: failed to close kafka writer: %v", err)
		}
	}
	log.Fatalf("Failed to start server: %v", serveErr)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
