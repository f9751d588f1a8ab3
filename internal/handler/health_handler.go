package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/alimtalk/internal/pkg/response"
)

const APIVersion = "1.0.0"

type HealthHandler struct {
	ready func() bool
}

// NewHealthHandler reports ready() as generator_initialized.
func NewHealthHandler(ready func() bool) *HealthHandler {
	return &HealthHandler{ready: ready}
}

type healthResponse struct {
	Status               string `json:"status"`
	GeneratorInitialized bool   `json:"generator_initialized"`
	APIVersion           string `json:"api_version"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	ready := h.ready != nil && h.ready()
	status := "healthy"
	if !ready {
		status = "degraded"
	}
	response.Success(c, healthResponse{Status: status, GeneratorInitialized: ready, APIVersion: APIVersion})
}
