package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listServersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.mcpService == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "MCP service is not available"})
			return
		}
		servers, err := s.mcpService.ListServers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, servers)
	}
}

func (s *Server) reloadServersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.configService.ReloadMCPServers(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) reloadServerListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.configService.ReloadMCPServerList(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
