package api

import (
	"errors"
	"net/http"

	"farmlink/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var netErr *models.NetworkError
	var parseErr *models.ParseError
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &netErr), errors.As(err, &parseErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError answers with {"error": msg}. Internal errors are logged and not echoed.
func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
