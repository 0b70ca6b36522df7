package errors

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrConversationNotFound is returned when a conversation is not found.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrEmailTaken is returned when registering or updating to an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials deliberately does not say whether the email or
	// the password was wrong.
	ErrInvalidCredentials = errors.New("Invalid email or password")
	// ErrAgentUnavailable is returned when the external agent engine is
	// unreachable or answers with garbage.
	ErrAgentUnavailable = errors.New("agent service unavailable")
)

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusCode maps a domain error to its HTTP status code.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorHandler renders every failure as {"error": message}. Error
// messages pass through verbatim; only the status code is derived here.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := StatusCode(err)
	message := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch m := he.Message.(type) {
		case string:
			message = m
		case error:
			message = m.Error()
		default:
			message = http.StatusText(he.Code)
		}
	}

	if jsonErr := c.JSON(status, ErrorResponse{Error: message}); jsonErr != nil {
		c.Logger().Error(jsonErr)
	}
}
