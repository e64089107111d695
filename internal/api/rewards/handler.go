// Package rewards provides the REST API handlers for the reward economy.
// Every route acts on the account authenticated by the bearer token.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/reward-economy/internal/api/middleware"
	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/service/economy"
	"github.com/aimd54/reward-economy/internal/service/leaderboard"
	"github.com/aimd54/reward-economy/internal/service/tasks"
	"github.com/aimd54/reward-economy/pkg/logger"
)

// EconomyService interface for the account-scoped economy operations.
type EconomyService interface {
	CheckIn(ctx context.Context, accountID uint) (*economy.CheckinResult, error)
	OpenBox(ctx context.Context, accountID, boxID uint) (*economy.OpenBoxResult, error)
	CompleteTask(ctx context.Context, accountID, taskID uint, payload string) (*economy.CompleteTaskResult, error)
	ConnectWallet(ctx context.Context, accountID uint, address string) (*economy.ConnectWalletResult, error)
	Profile(ctx context.Context, accountID uint) (*economy.Profile, error)
	Ledger(ctx context.Context, accountID uint, limit int) ([]models.LedgerEntry, error)
	Audit(ctx context.Context, accountID uint) (*economy.AuditResult, error)
	EarnedBadges(ctx context.Context, accountID uint) ([]models.EarnedBadge, error)
	BadgeCatalog(ctx context.Context) ([]models.Badge, error)
	PendingBoxes(ctx context.Context, accountID uint) ([]models.RewardBox, error)
	ListTasks(ctx context.Context, accountID uint) ([]tasks.Availability, error)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, metric string, limit int) ([]leaderboard.Entry, error)
	GetAccountStats(ctx context.Context, accountID uint) (*leaderboard.AccountStats, error)
}

// Handler handles reward API requests.
type Handler struct {
	economyService     EconomyService
	leaderboardService LeaderboardService
	log                *logger.Logger
}

// NewHandler creates a new rewards handler.
func NewHandler(economyService *economy.Service, leaderboardService *leaderboard.Service, log *logger.Logger) *Handler {
	return NewHandlerWithInterfaces(economyService, leaderboardService, log)
}

// NewHandlerWithInterfaces creates a new rewards handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(economyService EconomyService, leaderboardService LeaderboardService, log *logger.Logger) *Handler {
	return &Handler{
		economyService:     economyService,
		leaderboardService: leaderboardService,
		log:                log,
	}
}

// CheckIn records the daily check-in.
// POST /api/v1/checkin.
func (h *Handler) CheckIn(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	result, err := h.economyService.CheckIn(c.Request.Context(), accountID)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// OpenBox opens a pending reward box.
// POST /api/v1/boxes/:id/open.
func (h *Handler) OpenBox(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}
	boxID, err := parseID(c, "box")
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	result, err := h.economyService.OpenBox(c.Request.Context(), accountID, boxID)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type completeTaskRequest struct {
	VerificationPayload string `json:"verification_payload"`
}

// CompleteTask completes a task.
// POST /api/v1/tasks/:id/complete.
func (h *Handler) CompleteTask(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}
	taskID, err := parseID(c, "task")
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	var req completeTaskRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.errorResponse(c, apperrors.Validation("invalid request body"))
			return
		}
	}

	result, err := h.economyService.CompleteTask(c.Request.Context(), accountID, taskID, req.VerificationPayload)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type connectWalletRequest struct {
	Address string `json:"address"`
}

// ConnectWallet links an external wallet.
// POST /api/v1/wallet.
func (h *Handler) ConnectWallet(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req connectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, apperrors.Validation("invalid request body"))
		return
	}

	result, err := h.economyService.ConnectWallet(c.Request.Context(), accountID, req.Address)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetProfile returns the authenticated account.
// GET /api/v1/me.
func (h *Handler) GetProfile(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	profile, err := h.economyService.Profile(c.Request.Context(), accountID)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetStats returns counters, badges and ranks for the authenticated account.
// GET /api/v1/me/stats.
func (h *Handler) GetStats(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	stats, err := h.leaderboardService.GetAccountStats(c.Request.Context(), accountID)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": time.Now().UTC(),
	})
}

// GetLedger returns ledger history, newest first.
// GET /api/v1/me/ledger?limit=20.
func (h *Handler) GetLedger(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}
	limit, err := parseLimit(c, economy.DefaultLedgerLimit, economy.MaxLedgerLimit)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	entries, err := h.economyService.Ledger(c.Request.Context(), accountID, limit)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":       entries,
		"total_entries": len(entries),
	})
}

// GetAudit compares the balance with the ledger sum.
// GET /api/v1/me/audit.
func (h *Handler) GetAudit(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	audit, err := h.economyService.Audit(c.Request.Context(), accountID)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, audit)
}

// GetBadges returns the badges earned by the authenticated account.
// GET /api/v1/me/badges.
func (h *Handler) GetBadges(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	earned, err := h.economyService.EarnedBadges(c.Request.Context(), accountID)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       earned,
		"total_badges": len(earned),
	})
}

// GetBadgeCatalog returns every badge definition.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalog, err := h.economyService.BadgeCatalog(c.Request.Context())
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       catalog,
		"total_badges": len(catalog),
	})
}

// GetPendingBoxes returns the boxes the account can open.
// GET /api/v1/boxes.
func (h *Handler) GetPendingBoxes(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	pending, err := h.economyService.PendingBoxes(c.Request.Context(), accountID)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"boxes":       pending,
		"total_boxes": len(pending),
	})
}

// GetTasks returns the available tasks with the account's progress.
// GET /api/v1/tasks.
func (h *Handler) GetTasks(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	available, err := h.economyService.ListTasks(c.Request.Context(), accountID)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":       available,
		"total_tasks": len(available),
	})
}

// GetLeaderboard returns the ranking for a metric.
// GET /api/v1/leaderboard?metric=balance&limit=10.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	metric := c.DefaultQuery("metric", leaderboard.MetricBalance)
	limit, err := parseLimit(c, leaderboard.DefaultLimit, leaderboard.MaxLimit)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	entries, err := h.leaderboardService.GetLeaderboard(c.Request.Context(), metric, limit)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"metric":        metric,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// Helper functions

// accountID reads the authenticated account; a missing one means the route
// was registered without the auth middleware.
func (h *Handler) accountID(c *gin.Context) (uint, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		h.log.Error().Str("path", c.FullPath()).Msg("Route reached without an authenticated account")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "unauthenticated",
			"timestamp": time.Now().UTC(),
		})
		return 0, false
	}
	return id, true
}

// parseID extracts and validates the numeric ID from the URL parameter.
func parseID(c *gin.Context, what string) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.Validation(fmt.Sprintf("invalid %s ID: %s", what, idStr))
	}
	return uint(id), nil
}

// parseLimit extracts and validates the limit query parameter.
func parseLimit(c *gin.Context, defaultLimit, maxLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, apperrors.Validation(fmt.Sprintf("invalid limit parameter: %s", limitStr))
	}
	if limit < 1 {
		return 0, apperrors.Validation("limit must be greater than 0")
	}
	if limit > maxLimit {
		return 0, apperrors.Validation(fmt.Sprintf("limit cannot exceed %d", maxLimit))
	}
	return limit, nil
}

// statusFor maps a rejection to its HTTP status.
func statusFor(err error) int {
	if apperrors.CodeOf(err) == apperrors.CodeNotOwned {
		return http.StatusForbidden
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, err error) {
	status := statusFor(err)

	message := err.Error()
	var rejection *apperrors.Error
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("request_id", middleware.RequestID(c)).Str("path", c.FullPath()).Msg("Request failed")
		message = "internal error"
	} else if errors.As(err, &rejection) {
		message = rejection.Message
	}

	body := gin.H{
		"error":     message,
		"code":      apperrors.CodeOf(err),
		"timestamp": time.Now().UTC(),
	}
	if next := apperrors.NextAvailableAt(err); next != nil {
		body["next_available_at"] = next.UTC()
		if apperrors.Is(err, apperrors.CodeAlreadyCheckedIn) {
			body["next_checkin_at"] = next.UTC()
		}
	}
	c.JSON(status, body)
}
