package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zengarden/internal/application/usecase"
)

type HealthHandler struct {
	uc *usecase.HealthUseCase
}

func NewHealthHandler(uc *usecase.HealthUseCase) *HealthHandler {
	return &HealthHandler{uc: uc}
}

// GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	report := h.uc.Check(c)
	status := http.StatusOK
	if report.Status == usecase.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"success":   report.Status != usecase.StatusUnhealthy,
		"status":    report.Status,
		"timestamp": report.Timestamp,
		"services":  report.Services,
	})
}
