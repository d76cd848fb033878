package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AppError carries the HTTP status a handler should answer with.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on status code and message so sentinels compare by kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrInternalServer is the fallback answer for errors that are not an AppError.
// Never mutate it; use Internal to wrap a cause.
var ErrInternalServer = New(http.StatusInternalServerError, "Internal Server Error", nil)

// BadRequest returns a 400 with a caller-facing message.
func BadRequest(message string, err error) *AppError {
	return New(http.StatusBadRequest, message, err)
}

// NotFound returns a 404 with a caller-facing message.
func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message, nil)
}

// Internal returns a 500 with a caller-facing message.
func Internal(message string, err error) *AppError {
	return New(http.StatusInternalServerError, message, err)
}

// StatusOf returns the HTTP status for err, 500 when it is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// Respond writes err as {"error": message}. Not-found answers use {"message": ...}
// to keep the shape clients of the payments lookup already depend on.
func Respond(c *gin.Context, err error) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = ErrInternalServer
	}

	if appErr.Code == http.StatusNotFound {
		c.AbortWithStatusJSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
}
