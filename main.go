package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"expo-backend/badge"
	"expo-backend/checkin"
	"expo-backend/config"
	. "expo-backend/handlers"
	"expo-backend/middleware"
	"expo-backend/models"
	"expo-backend/store"
)

const columnCacheTTL = 10 * time.Minute

func connectToDatabase(dbURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	log.Println("Successfully connected to the database!")
	return pool, nil
}

// connectToRedis is optional: without REDIS_URL each process keeps its own
// column cache.
func connectToRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}

	log.Println("Successfully connected to Redis!")
	return client, nil
}

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using default environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v\n", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Database connection
	pool, err := connectToDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	var columnCache checkin.ColumnCache
	if cfg.RedisURL != "" {
		rdb, err := connectToRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, column cache stays in-process", "error", err)
		} else {
			defer rdb.Close()
			columnCache = checkin.NewRedisColumnCache(rdb, columnCacheTTL)
		}
	}

	engine := checkin.NewEngine(store.NewPgxPool(pool), checkin.Options{
		Collections:    checkin.Collections(cfg.TicketCollection, cfg.RoleCollections),
		FreeCategories: cfg.FreeCategories,
		CallTimeout:    cfg.StoreCallTimeout,
		Cache:          columnCache,
		Logger:         logger,
	})

	var renderer badge.Renderer
	if cfg.BadgeRendererURL != "" {
		renderer = badge.NewHTTPRenderer(cfg.BadgeRendererURL, cfg.BadgeRendererTimeout)
		log.Printf("Using badge renderer at %s\n", cfg.BadgeRendererURL)
	}
	badges := badge.NewService(renderer, logger)

	// Create handlers
	event := models.EventContext{Name: cfg.EventName, Date: cfg.EventDate, Venue: cfg.EventVenue}
	checkinHandler := NewCheckinHandler(engine, badges, event, logger)

	// Setup Gin
	router := gin.New()
	router.Use(gin.Logger(), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic serving request", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}))
	router.Use(middleware.RequestID())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Ticket-Previously-Redeemed", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// API routes
	api := router.Group("/api/v1")
	{
		stations := api.Group("", middleware.StationAuth(cfg.StationJWTSecret))
		{
			// Check-in routes
			stations.POST("/badges/print", checkinHandler.PrintBadge)
			stations.POST("/tickets/lookup", checkinHandler.Lookup)
			stations.GET("/tickets/:code/qr", checkinHandler.TicketQR)
		}

		// Health check route
		api.GET("/test-db", func(c *gin.Context) {
			err := pool.Ping(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed: " + err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "Database connection OK"})
		})
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})

	log.Printf("Server starting on port %s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v\n", err)
	}
}
