package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/patsaid/ts-agentic-api/internal/auth"
	"github.com/patsaid/ts-agentic-api/internal/config"
	apperrors "github.com/patsaid/ts-agentic-api/internal/errors"
	"github.com/patsaid/ts-agentic-api/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	userHandler *handler.UserHandler,
	agentHandler *handler.AgentHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/api-docs/*", echoSwagger.WrapHandler)

	// User routes
	users := e.Group("/users")
	users.POST("", userHandler.CreateUser)
	users.GET("", userHandler.ListUsers)
	users.POST("/login", userHandler.Login)

	// Secured routes (require JWT authentication)
	secured := users.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
	}))
	secured.GET("/me", userHandler.Me)

	users.PUT("/:id", userHandler.UpdateUser)
	users.DELETE("/:id", userHandler.DeleteUser)

	// Agent routes
	agent := e.Group("/agent")
	agent.POST("/conversations/new", agentHandler.NewConversation)
	agent.GET("/conversations/:userId", agentHandler.ListConversations)
	agent.POST("/ask", agentHandler.Ask)
	agent.POST("/weather/:city", agentHandler.Weather)
	agent.POST("/local/:name", agentHandler.Local)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
