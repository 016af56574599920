package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"zengarden/internal/application/usecase"
)

type SessionHandler struct {
	uc     *usecase.SessionUseCase
	logger *zap.Logger
}

func NewSessionHandler(uc *usecase.SessionUseCase, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{uc: uc, logger: logger}
}

type startReq struct {
	AccountID      string `json:"accountId"`
	Mode           string `json:"mode"`
	TargetDuration int    `json:"targetDuration"`
}

type completeReq struct {
	SessionID           string                   `json:"sessionId"`
	AccountID           string                   `json:"accountId"`
	Mode                string                   `json:"mode"`
	ActualDuration      int                      `json:"actualDuration"`
	SignedProof         string                   `json:"signedProof"`
	EncryptedReflection *usecase.ReflectionInput `json:"encryptedReflection"`
}

// POST /api/v1/session/start
func (h *SessionHandler) Start(c *gin.Context) {
	var req startReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.uc.Start(c, req.AccountID, req.Mode, req.TargetDuration)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"sessionId":      res.SessionID,
		"userId":         res.UserID,
		"nonce":          res.Nonce,
		"mode":           res.Mode,
		"targetDuration": res.TargetDuration,
		"startTime":      res.StartTime,
	})
}

// POST /api/v1/session/complete
func (h *SessionHandler) Complete(c *gin.Context) {
	var req completeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.uc.Complete(c, usecase.CompleteRequest{
		SessionID:      req.SessionID,
		AccountID:      req.AccountID,
		Mode:           req.Mode,
		ActualDuration: req.ActualDuration,
		SignedProof:    req.SignedProof,
		Reflection:     req.EncryptedReflection,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	body := gin.H{
		"success":       true,
		"sessionId":     res.SessionID,
		"xpEarned":      res.XPEarned,
		"totalXP":       res.TotalXP,
		"level":         res.Level,
		"previousLevel": res.PreviousLevel,
		"leveledUp":     res.LeveledUp,
		"gardenPreview": res.GardenPreview,
	}
	if res.AuditCoordinates != nil {
		body["auditCoordinates"] = res.AuditCoordinates
	}
	if res.Reflection != nil {
		body["reflection"] = res.Reflection
	}
	c.JSON(http.StatusOK, body)
}
