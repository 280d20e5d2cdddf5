package subscription

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"planpass/internal/api"
	"planpass/internal/auth"
	"planpass/internal/logger"

	"github.com/gin-gonic/gin"
)

// SweepRunner runs one expiry sweep on demand.
type SweepRunner interface {
	RunOnce(ctx context.Context) (*SweepResult, error)
}

type Handler struct {
	service Service
	sweeper SweepRunner
}

func NewHandler(service Service, sweeper SweepRunner) *Handler {
	return &Handler{
		service: service,
		sweeper: sweeper,
	}
}

// Create answers POST /subscriptions for the authenticated caller.
func (h *Handler) Create(c *gin.Context) {
	who, ok := auth.CurrentUser(c)
	if !ok {
		api.AbortWithError(c, api.Unauthorized("not authorized"))
		return
	}

	var req PlanRequest
	if !api.BindJSON(c, &req) {
		return
	}

	view, err := h.service.Create(c.Request.Context(), who.ID, req.PlanID)
	if err != nil {
		h.fail(c, "create", err)
		return
	}

	api.OK(c, http.StatusCreated, view)
}

func (h *Handler) Get(c *gin.Context) {
	userID, ok := h.authorize(c, "access")
	if !ok {
		return
	}

	view, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "get", err)
		return
	}

	api.OK(c, http.StatusOK, view)
}

func (h *Handler) Update(c *gin.Context) {
	userID, ok := h.authorize(c, "update")
	if !ok {
		return
	}

	var req PlanRequest
	if !api.BindJSON(c, &req) {
		return
	}

	view, err := h.service.Upgrade(c.Request.Context(), userID, req.PlanID)
	if err != nil {
		h.fail(c, "upgrade", err)
		return
	}

	api.OK(c, http.StatusOK, view)
}

func (h *Handler) Cancel(c *gin.Context) {
	userID, ok := h.authorize(c, "cancel")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), userID); err != nil {
		h.fail(c, "cancel", err)
		return
	}

	api.OKWithMessage(c, gin.H{}, "Subscription successfully cancelled")
}

func (h *Handler) History(c *gin.Context) {
	userID, ok := h.authorize(c, "access")
	if !ok {
		return
	}

	views, err := h.service.History(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "history", err)
		return
	}

	api.OKWithCount(c, views, len(views))
}

// CheckExpired runs the expiry sweep now and lists the records it expired.
func (h *Handler) CheckExpired(c *gin.Context) {
	result, err := h.sweeper.RunOnce(c.Request.Context())
	if err != nil {
		logger.Error("on-demand expiry sweep failed", "error", err)
		api.AbortWithError(c, err)
		return
	}

	api.OKWithCount(c, result.Expired, result.Count)
}

// authorize resolves the :userId path parameter and lets the caller through
// when it is their own id or they are an admin.
func (h *Handler) authorize(c *gin.Context, action string) (int, bool) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || userID <= 0 {
		api.AbortWithError(c, ErrInvalidUserID)
		return 0, false
	}

	if _, err := auth.AuthorizeUser(c, userID); err != nil {
		if errors.Is(err, auth.ErrNotAuthorized) {
			err = api.Unauthorized("Not authorized to " + action + " this subscription")
		}
		api.AbortWithError(c, err)
		return 0, false
	}

	return userID, true
}

func (h *Handler) fail(c *gin.Context, operation string, err error) {
	if api.KindOf(err) == api.KindInternal {
		logger.Error("subscription request failed", "operation", operation, "error", err)
	}
	api.AbortWithError(c, err)
}
