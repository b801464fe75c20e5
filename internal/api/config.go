package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notebook-intelligence/nbi-settings/internal/service/config"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

func (s *Server) getConfigHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := s.configService.GetConfig(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, cfg)
	}
}

func (s *Server) setConfigHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.ConfigUpdate
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := s.configService.SetConfig(c.Request.Context(), &input)
		if err != nil {
			if errors.Is(err, config.ErrInvalidConfig) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) updateOllamaModelsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.configService.UpdateOllamaModelList(c.Request.Context()); err != nil {
			// the Ollama server is an upstream dependency of this request
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
