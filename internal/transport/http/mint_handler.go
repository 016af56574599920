package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"zengarden/internal/application/usecase"
	"zengarden/internal/domain"
)

type MintHandler struct {
	uc *usecase.MintUseCase
	// Ссылка на метаданные в шлюзе хранилища, nil - без ссылки
	metadataURL func(cid string) string
	logger      *zap.Logger
}

func NewMintHandler(uc *usecase.MintUseCase, metadataURL func(cid string) string, logger *zap.Logger) *MintHandler {
	return &MintHandler{uc: uc, metadataURL: metadataURL, logger: logger}
}

type mintReq struct {
	WalletAddress     string        `json:"walletAddress"`
	UserID            string        `json:"userId"`
	Level             int           `json:"level"`
	TotalXP           int           `json:"totalXP"`
	SessionsCompleted int           `json:"sessionsCompleted"`
	GardenTiles       []domain.Tile `json:"gardenTiles"`
}

// POST /api/v1/nft/mint
func (h *MintHandler) Mint(c *gin.Context) {
	var req mintReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.uc.Mint(c, usecase.MintRequest{
		WalletAddress:     req.WalletAddress,
		UserID:            req.UserID,
		Level:             req.Level,
		TotalXP:           req.TotalXP,
		SessionsCompleted: req.SessionsCompleted,
		GardenTiles:       req.GardenTiles,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	body := gin.H{
		"success":       true,
		"tokenId":       res.TokenID,
		"serialNumber":  res.SerialNumber,
		"transactionId": res.TransactionID,
		"contentId":     res.ContentID,
		"mintedAt":      res.MintedAt,
		"metadata":      res.Metadata,
	}
	if h.metadataURL != nil {
		body["metadataUrl"] = h.metadataURL(res.ContentID)
	}
	c.JSON(http.StatusOK, body)
}
