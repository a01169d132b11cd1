package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type Meta struct {
	Pagination *PaginationMeta `json:"pagination,omitempty"`
	Total      int64           `json:"total,omitempty"`
	Count      int             `json:"count,omitempty"`
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Status:    StatusSuccess,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func SuccessResponseWithMeta(c *gin.Context, message string, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, APIResponse{
		Status:    StatusSuccess,
		Message:   message,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now(),
	})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Status:    StatusSuccess,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, APIResponse{
		Status: StatusError,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now(),
	})
}

func ErrorResponseWithDetails(c *gin.Context, statusCode int, code, message string, details map[string]string) {
	c.JSON(statusCode, APIResponse{
		Status: StatusError,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	})
}

// AppErrorResponse renders a coordinator error with its kind as the
// error code and the status code derived from the taxonomy.
func AppErrorResponse(c *gin.Context, err error) {
	appErr := AsAppError(err)
	ErrorResponseWithDetails(c, appErr.StatusCode(), string(appErr.Kind), appErr.Message, appErr.Details)
}

func ValidationErrorResponse(c *gin.Context, errors map[string]string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, string(ErrKindValidation), ErrValidationFailed, errors)
}

func UnauthorizedResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusUnauthorized, string(ErrKindUnauthorized), ErrUnauthorized)
}

func ForbiddenResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusForbidden, string(ErrKindForbidden), ErrForbidden)
}

func NotFoundResponse(c *gin.Context, resource string) {
	ErrorResponse(c, http.StatusNotFound, string(ErrKindNotFound), resource+" not found")
}

// EmptyListResponse surfaces "no matching records" as a 404 with a
// human-readable message rather than an empty array, so dashboards can
// tell "nothing pending" apart from a broken endpoint.
func EmptyListResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, string(ErrKindNotFound), message)
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func InternalServerErrorResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", ErrInternalServer)
}
