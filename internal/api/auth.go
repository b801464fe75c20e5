package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/notebook-intelligence/nbi-settings/internal/auth"
)

// requireAccessToken rejects requests that do not carry the server's access token.
func (s *Server) requireAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.Check(c.Request, s.accessToken); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// requestLogger logs every request through zap instead of gin's default writer.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
