package server

import (
	"context"
	"errors"
	"net/http"

	"autoparts/catalog/internal/client"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// respondServiceError maps service errors onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, client.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, client.ErrCircuitOpen):
		respondError(c, http.StatusServiceUnavailable, "upstream_unavailable", err)
	case errors.Is(err, context.Canceled):
		c.Abort()
	default:
		log.Errorf("❌ Request %s failed: %v", c.GetString("request_id"), err)
		respondError(c, http.StatusBadGateway, "upstream_error", err)
	}
}
