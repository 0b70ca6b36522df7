package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	_ "github.com/patsaid/ts-agentic-api/docs" // swagger docs

	"github.com/patsaid/ts-agentic-api/internal/agent"
	"github.com/patsaid/ts-agentic-api/internal/auth"
	"github.com/patsaid/ts-agentic-api/internal/cache"
	"github.com/patsaid/ts-agentic-api/internal/config"
	"github.com/patsaid/ts-agentic-api/internal/db"
	"github.com/patsaid/ts-agentic-api/internal/handler"
	"github.com/patsaid/ts-agentic-api/internal/model"
	"github.com/patsaid/ts-agentic-api/internal/repository"
	"github.com/patsaid/ts-agentic-api/internal/router"
	"github.com/patsaid/ts-agentic-api/internal/service"
)

// @title Agentic API
// @version 1.0
// @description User accounts and LLM-agent conversations.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Conversation{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	conversationRepo := repository.NewConversationRepository(gormDB)

	// External agent engine
	agentClient := agent.NewClient(cfg.AgentAPIURL, cfg.AgentAPIKey, cfg.AgentModel)

	// Services
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	userService := service.NewUserService(userRepo, jwtService, cacheClient)
	agentService := service.NewAgentService(conversationRepo, agentClient, cacheClient)

	// Handlers
	userHandler := handler.NewUserHandler(userService)
	agentHandler := handler.NewAgentHandler(agentService)

	router.Register(e, cfg, userHandler, agentHandler)

	swaggerURL := "http://localhost:" + cfg.ServerPort + "/api-docs/index.html"
	if cfg.SwaggerHost != "" {
		swaggerURL = cfg.SwaggerHost + "/api-docs/index.html"
	}
	log.Printf("Swagger documentation available at: %s", swaggerURL)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
