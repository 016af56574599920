package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"zengarden/internal/domain"
)

// errorResponse переводит доменную ошибку в HTTP-статус и тело ответа.
func errorResponse(err error) (int, gin.H) {
	body := gin.H{"success": false, "error": err.Error()}

	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		authz      *domain.AuthorizationError
		authn      *domain.AuthenticationError
		conflict   *domain.ConflictError
		ineligible *domain.IneligibleError
		dependency *domain.DependencyError
		recon      *domain.ReconciliationError
		invariant  *domain.InvariantError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, body
	case errors.As(err, &notFound):
		body["error"] = notFound.Message
		return http.StatusNotFound, body
	case errors.As(err, &authz):
		return http.StatusForbidden, body
	case errors.As(err, &authn):
		return http.StatusUnauthorized, body
	case errors.As(err, &conflict):
		body["error"] = conflict.Message
		if conflict.AlreadyMinted {
			body["alreadyMinted"] = true
			if conflict.Existing != nil {
				body["nftMetadata"] = conflict.Existing
			}
		}
		return http.StatusBadRequest, body
	case errors.As(err, &ineligible):
		body["eligible"] = false
		return http.StatusBadRequest, body
	case errors.As(err, &recon):
		// Токен уже выпущен: отдаем все, что нужно для ручной сверки
		body["error"] = recon.Message
		body["tokenId"] = recon.Receipt.TokenID
		body["serialNumber"] = recon.Receipt.SerialNumber
		body["transactionId"] = recon.Receipt.TransactionID
		body["contentId"] = recon.ContentID
		body["reconciliationRequired"] = true
		return http.StatusInternalServerError, body
	case errors.As(err, &dependency):
		body["error"] = dependency.Message
		if dependency.Err != nil {
			body["details"] = dependency.Err.Error()
		}
		return http.StatusInternalServerError, body
	case errors.As(err, &invariant):
		return http.StatusInternalServerError, body
	default:
		body["error"] = "Internal server error"
		return http.StatusInternalServerError, body
	}
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body: " + err.Error()})
}
