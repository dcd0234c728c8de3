package api

import (
	"log"
	"net/http"

	"sigcalc/internal/errors"

	"github.com/gin-gonic/gin"
)

// statusFor maps application error codes to HTTP statuses
func statusFor(code string) int {
	switch code {
	case errors.CodeInvalidInput, errors.CodeConfigInvalid:
		return http.StatusBadRequest
	case errors.CodeFitFailed:
		return http.StatusUnprocessableEntity
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func invalidInput(err error) error {
	return errors.WithCode(errors.CodeInvalidInput, err)
}

func abortWithError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": code})
}
