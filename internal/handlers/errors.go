package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invite-exchange/internal/services"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{services.ErrInvalidFormat, http.StatusBadRequest, "InvalidFormat"},
	{services.ErrPostQuotaExceeded, http.StatusTooManyRequests, "PostQuotaExceeded"},
	{services.ErrClaimQuotaExceeded, http.StatusTooManyRequests, "ClaimQuotaExceeded"},
	{services.ErrDuplicateCoreCode, http.StatusConflict, "DuplicateCoreCode"},
	{services.ErrDuplicateID, http.StatusConflict, "DuplicateId"},
	{services.ErrAlreadyClaimed, http.StatusConflict, "AlreadyClaimed"},
	{services.ErrCodeExhausted, http.StatusConflict, "Exhausted"},
	{services.ErrSelfClaim, http.StatusForbidden, "SelfClaimForbidden"},
	{services.ErrCodeNotFound, http.StatusNotFound, "CodeNotFound"},
	{services.ErrClaimSystemBusy, http.StatusServiceUnavailable, "ClaimSystemBusy"},
}

// respondError writes the response for a service error. Unknown errors are
// logged and hidden behind a generic 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{
				"error": err.Error(),
				"code":  m.code,
			})
			return
		}
	}

	_ = c.Error(err)
	log.Error("Unhandled error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
		"code":  "InternalError",
	})
}

func respondUnauthenticated(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "User not authenticated",
		"code":  "Unauthorized",
	})
}
