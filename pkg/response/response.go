package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"todoagent/internal/domain/entities"
	"todoagent/pkg/validation"
)

type ResponseError struct {
	Code    string                 `json:"code"`
	Errors  []validation.Violation `json:"errors"`
	Details any                    `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}

func SendSuccess(c *gin.Context, statusCode int, data any, message ...string) {
	response := SuccessResponse{
		Data: data,
	}

	if len(message) > 0 && message[0] != "" {
		response.Message = message[0]
	}

	c.JSON(statusCode, response)
}

func SendError(c *gin.Context, statusCode int, code string, violations []validation.Violation, details ...any) {
	errorResponse := ErrorResponse{
		Error: ResponseError{
			Code:   code,
			Errors: violations,
		},
	}

	if len(details) > 0 {
		errorResponse.Error.Details = details[0]
	}

	c.AbortWithStatusJSON(statusCode, errorResponse)
}

// SendValidationError renders validator errors and *entities.ValidationError
// alike.
func SendValidationError(c *gin.Context, err error) {
	var domainErr *entities.ValidationError

	violations := validation.FormatValidationErrors(err)
	if errors.As(err, &domainErr) {
		violations = domainErr.Violations
	}

	if len(violations) == 0 {
		violations = []validation.Violation{{Field: "body", Message: err.Error()}}
	}

	SendError(c, http.StatusBadRequest, "VALIDATION_ERROR", violations)
}

func SendInternalError(c *gin.Context, message string, details ...any) {
	SendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", []validation.Violation{{
		Field:   "server",
		Message: message,
	}}, details...)
}

func SendStorageUnavailableError(c *gin.Context, message string) {
	SendError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", []validation.Violation{{
		Field:   "storage",
		Message: message,
	}})
}

func SendUnauthorizedError(c *gin.Context, message string) {
	SendError(c, http.StatusUnauthorized, "UNAUTHORIZED", []validation.Violation{{
		Field:   "auth",
		Message: message,
	}})
}

func SendBadRequestError(c *gin.Context, field string, message string) {
	SendError(c, http.StatusBadRequest, "BAD_REQUEST", []validation.Violation{{
		Field:   field,
		Message: message,
	}})
}

func SendNotFoundError(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, "NOT_FOUND", []validation.Violation{{
		Field:   "resource",
		Message: message,
	}})
}

// SendDomainError maps the error taxonomy of the storage engine onto HTTP.
func SendDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entities.ErrValidation):
		SendValidationError(c, err)
	case errors.Is(err, entities.ErrStorageUnavailable):
		SendStorageUnavailableError(c, "to-do storage is unavailable")
	default:
		SendInternalError(c, "Internal server error")
	}
}
