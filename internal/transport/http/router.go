package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"zengarden/internal/middleware"
)

type Handlers struct {
	Session *SessionHandler
	Mint    *MintHandler
	Garden  *GardenHandler
	Health  *HealthHandler
}

func NewRouter(h Handlers, limiter *middleware.RateLimiter, origins []string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(logger), gin.Recovery())

	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	config := cors.DefaultConfig()
	config.AllowOrigins = origins
	config.AllowCredentials = true
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-User-Id", "X-Wallet-Address"}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(config))

	r.GET("/api/health", h.Health.Health)

	api := r.Group("/api/v1")
	{
		session := api.Group("/session")
		{
			session.POST("/start", limiter.Limit("session_start", 30, time.Minute), h.Session.Start)
			session.POST("/complete", limiter.Limit("session_complete", 30, time.Minute), h.Session.Complete)
		}
		api.POST("/nft/mint", limiter.Limit("nft_mint", 5, time.Minute), h.Mint.Mint)
		api.GET("/garden/state", middleware.NoStore(), middleware.Identity(), h.Garden.State)
	}

	return r
}
