package server

import (
	"net/http"

	apikeydomain "github.com/fixkit/fixkit/internal/apikey/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListAPIKeys(c *gin.Context) {
	keys, err := s.apiKeySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"api_keys": keys})
}

func (s *Server) CreateAPIKey(c *gin.Context) {
	var req apikeydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	secret, err := s.apiKeySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, secret)
}

func (s *Server) RotateAPIKey(c *gin.Context) {
	secret, err := s.apiKeySvc.Rotate(c.Request.Context(), c.Param("keyId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, secret)
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	if err := s.apiKeySvc.Revoke(c.Request.Context(), c.Param("keyId")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}
