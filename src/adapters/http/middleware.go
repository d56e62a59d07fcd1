package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"orghierarchy/src/domain"
	"orghierarchy/src/metrics"
)

const callerKey = "caller"

// authenticate extrai o CallerContext do header Authorization: Bearer <jwt>.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenParts := strings.SplitN(authHeader, " ", 2)
		if authHeader == "" || len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrorResponse(
				http.StatusUnauthorized,
				"Authentication required",
				ErrMissingToken.Error(),
			))
			return
		}

		caller, err := s.tokenParser.Parse(strings.TrimSpace(tokenParts[1]))
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, ErrExpiredToken) {
				message = "Expired token"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrorResponse(http.StatusUnauthorized, message, ""))
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

func callerFrom(c *gin.Context) domain.CallerContext {
	value, exists := c.Get(callerKey)
	if !exists {
		return domain.CallerContext{}
	}
	caller, _ := value.(domain.CallerContext)
	return caller
}

// requestLogger registra cada requisição no slog e alimenta as métricas da API.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		statusClass := fmt.Sprintf("%dxx", status/100)
		elapsed := time.Since(start)

		metrics.APIRequests.WithLabelValues(route, statusClass).Inc()
		metrics.APILatency.WithLabelValues(route, statusClass).Observe(elapsed.Seconds())

		s.logger.Info("HTTP request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", elapsed.Milliseconds(),
			"organization_id", callerFrom(c).OrganizationID)
	}
}
