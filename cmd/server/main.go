package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"orachat/backend/internal/api/handler"
	"orachat/backend/internal/auth"
	"orachat/backend/internal/chathub"
	"orachat/backend/internal/models"
	"orachat/backend/internal/storage"
	"orachat/backend/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config, logger *zap.Logger) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect PostgreSQL", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logger.Fatal("failed to connect Redis", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.Message{},
	); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	logger.Info("database and Redis connections established, migrations complete")
	return db, rdb
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.Server.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	db, rdb := setupDependencies(cfg, logger)
	s := storage.NewStorageService(db, rdb)

	hub := chathub.NewManager(s, logger)
	go hub.Run()

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	h := handler.NewHandler(s, hub, []byte(cfg.Server.JWTSecret), logger)

	user := r.Group("/user")
	{
		user.POST("/register", h.Register)
		user.POST("/login", h.Login)

		authed := user.Group("", auth.Middleware([]byte(cfg.Server.JWTSecret)))
		authed.GET("/getuser", h.GetUser)
		authed.GET("/getallusers", h.GetAllUsers)
		authed.GET("/logout", h.Logout)
	}

	chat := r.Group("/chat", auth.Middleware([]byte(cfg.Server.JWTSecret)))
	{
		chat.GET("/user/:userId", h.GetUserChats)
		chat.POST("/start", h.StartChat)
	}

	// ServeWebSocket authenticates on its own: the upgrade carries the
	// session cookie or a token query parameter.
	r.GET("/ws", h.ServeWebSocket)

	// No WriteTimeout here: it would cut long-lived websocket connections.
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
