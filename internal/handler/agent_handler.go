package handler

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/patsaid/ts-agentic-api/internal/service"
)

// AgentHandler handles the ask-style endpoints and conversation listing.
type AgentHandler struct {
	svc service.AgentService
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(svc service.AgentService) *AgentHandler {
	return &AgentHandler{svc: svc}
}

// NewConversationRequest starts an empty conversation for a user.
type NewConversationRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

// AskRequest represents a question for the agent. ConversationID is
// optional; a missing or stale value falls back to the user's most recent
// conversation, deliberately without a format check.
type AskRequest struct {
	UserID         string `json:"userId" validate:"required,uuid"`
	Question       string `json:"question" validate:"required"`
	ConversationID string `json:"conversationId"`
}

// UserIDRequest carries just the acting user, used by the synthesized-question endpoints.
type UserIDRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

// AskResponse is the answer plus the conversation that absorbed it.
type AskResponse struct {
	Answer         string    `json:"answer"`
	ConversationID uuid.UUID `json:"conversationId"`
}

// NewConversation godoc
// @Summary Start a new conversation for a user
// @Tags agent
// @Accept json
// @Produce json
// @Param request body NewConversationRequest true "Owning user"
// @Success 201 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Router /agent/conversations/new [post]
func (h *AgentHandler) NewConversation(c echo.Context) error {
	var req NewConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, _ := uuid.Parse(req.UserID)

	conversation, err := h.svc.NewConversation(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"conversationId": conversation.ID.String(),
	})
}

// ListConversations godoc
// @Summary Get all conversations for a user, newest first
// @Tags agent
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {array} model.Conversation
// @Failure 400 {object} errors.ErrorResponse
// @Router /agent/conversations/{userId} [get]
func (h *AgentHandler) ListConversations(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	conversations, err := h.svc.Conversations(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conversations)
}

// Ask godoc
// @Summary Ask the agent a question
// @Tags agent
// @Accept json
// @Produce json
// @Param request body AskRequest true "Question, optionally linked to a conversation"
// @Success 200 {object} AskResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /agent/ask [post]
func (h *AgentHandler) Ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, _ := uuid.Parse(req.UserID)

	return h.ask(c, userID, req.Question, req.ConversationID)
}

// Weather godoc
// @Summary Get weather info for a city through the agent
// @Tags agent
// @Accept json
// @Produce json
// @Param city path string true "City name"
// @Param request body UserIDRequest true "Acting user"
// @Success 200 {object} AskResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /agent/weather/{city} [post]
func (h *AgentHandler) Weather(c echo.Context) error {
	userID, err := h.bindUserID(c)
	if err != nil {
		return err
	}
	question := fmt.Sprintf("What is the weather in %s?", c.Param("city"))
	return h.ask(c, userID, question, "")
}

// Local godoc
// @Summary Fetch local DB info for a name through the agent
// @Tags agent
// @Accept json
// @Produce json
// @Param name path string true "Name to look up"
// @Param request body UserIDRequest true "Acting user"
// @Success 200 {object} AskResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /agent/local/{name} [post]
func (h *AgentHandler) Local(c echo.Context) error {
	userID, err := h.bindUserID(c)
	if err != nil {
		return err
	}
	question := fmt.Sprintf("Fetch info for user %s", c.Param("name"))
	return h.ask(c, userID, question, "")
}

func (h *AgentHandler) bindUserID(c echo.Context) (uuid.UUID, error) {
	var req UserIDRequest
	if err := c.Bind(&req); err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, _ := uuid.Parse(req.UserID)
	return userID, nil
}

func (h *AgentHandler) ask(c echo.Context, userID uuid.UUID, question, conversationID string) error {
	answer, conversation, err := h.svc.Ask(c.Request().Context(), userID, question, conversationID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AskResponse{
		Answer:         answer,
		ConversationID: conversation.ID,
	})
}
