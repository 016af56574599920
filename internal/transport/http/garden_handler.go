package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"zengarden/internal/application/usecase"
	"zengarden/internal/middleware"
)

type GardenHandler struct {
	uc     *usecase.GardenUseCase
	logger *zap.Logger
}

func NewGardenHandler(uc *usecase.GardenUseCase, logger *zap.Logger) *GardenHandler {
	return &GardenHandler{uc: uc, logger: logger}
}

type gardenStateResp struct {
	Success bool `json:"success"`
	*usecase.GardenState
}

// GET /api/v1/garden/state
func (h *GardenHandler) State(c *gin.Context) {
	state, err := h.uc.State(c, c.GetString(middleware.UserIDKey), c.GetString(middleware.WalletKey))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gardenStateResp{Success: true, GardenState: state})
}
