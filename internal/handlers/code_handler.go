package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invite-exchange/internal/auth"
	"invite-exchange/internal/models"
	"invite-exchange/internal/services"
)

// CodeHandler handles code listing, publishing and claiming
type CodeHandler struct {
	codes  *services.CodeService
	claims *services.ClaimService
	quota  *services.QuotaService
	log    *zap.Logger
}

// NewCodeHandler creates a new CodeHandler
func NewCodeHandler(svc *services.Services, log *zap.Logger) *CodeHandler {
	return &CodeHandler{
		codes:  svc.Codes,
		claims: svc.Claims,
		quota:  svc.Quota,
		log:    log,
	}
}

// ListCodes returns the active codes personalised for the caller
// GET /api/codes
func (h *CodeHandler) ListCodes(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}

	codes, err := h.codes.ListCodes(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, codes)
}

// GetStats returns the caller's usage for today
// GET /api/user/stats
func (h *CodeHandler) GetStats(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}

	stats, err := h.quota.Stats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CreateCode publishes a code
// POST /api/codes
func (h *CodeHandler) CreateCode(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}

	var req models.CreateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
			"code":  "BadRequest",
		})
		return
	}

	code, err := h.codes.CreateCode(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, code)
}

// ClaimCode consumes one use of a code
// POST /api/codes/:id/claim
func (h *CodeHandler) ClaimCode(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}

	result, err := h.claims.ClaimCode(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
