package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/application/service"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ValidationResponse is the error body for a rejected input field
type ValidationResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// statusFor maps an application error to an HTTP status and a message
// that is safe to show to the caller
func statusFor(err error) (int, string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, errMissingToken),
		errors.Is(err, port.ErrInvalidCredential),
		errors.Is(err, port.ErrSessionNotFound),
		errors.Is(err, errSessionClosed):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusForbidden, "no profile is provisioned for this account"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "your role does not allow this operation"
	case errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, port.ErrUnsupportedReceipt):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, errSessionLoading):
		return http.StatusServiceUnavailable, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeError(c *gin.Context, err error) {
	status, message := statusFor(err)

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		c.JSON(status, Response{
			Success: false,
			Data:    ValidationResponse{Field: verr.Field, Message: verr.Message},
			Error:   message,
		})
		return
	}

	c.JSON(status, Response{Success: false, Error: message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: message})
}
