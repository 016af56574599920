package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey = "userId"
	WalletKey = "walletAddress"
)

// Identity достает идентификаторы владельца сада из query или заголовков.
// Отсутствие обоих - не ошибка middleware, решает обработчик.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("userId")
		if userID == "" {
			userID = c.GetHeader("X-User-Id")
		}

		wallet := c.Query("walletAddress")
		if wallet == "" {
			wallet = c.GetHeader("X-Wallet-Address")
		}
		if wallet == "" {
			// Authorization: Bearer <кошелек>
			parts := strings.Split(c.GetHeader("Authorization"), " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				wallet = parts[1]
			}
		}

		c.Set(UserIDKey, strings.TrimSpace(userID))
		c.Set(WalletKey, strings.TrimSpace(wallet))
		c.Next()
	}
}

// NoStore запрещает кэширование ответа, включая ответы с ошибкой.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
