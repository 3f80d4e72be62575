package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmamap/backend/internal/domain"
	"github.com/pharmamap/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	resolver usecase.Resolver
}

// NewHandler creates a new HTTP handler
func NewHandler(resolver usecase.Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pharmamap-backend",
		"version": "1.0.0",
	})
}

// ResolveMapping maps a single CNOPS drug record to RxNorm
func (h *Handler) ResolveMapping(c *gin.Context) {
	var record domain.DrugRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request: " + err.Error(),
		})
		return
	}

	result := h.resolver.Resolve(c.Request.Context(), record)
	c.JSON(http.StatusOK, result)
}
