package plan

import (
	"net/http"

	"planpass/internal/api"
	"planpass/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// List answers GET /plans with the active catalog.
func (h *Handler) List(c *gin.Context) {
	plans, err := h.service.List(c.Request.Context())
	if err != nil {
		logger.Error("failed to list plans", "error", err)
		api.AbortWithError(c, err)
		return
	}

	api.OKWithCount(c, plans, len(plans))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		api.AbortWithError(c, err)
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		api.AbortWithError(c, err)
		return
	}

	api.OK(c, http.StatusOK, p)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreatePlanRequest
	if !api.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		if api.KindOf(err) == api.KindInternal {
			logger.Error("failed to create plan", "name", req.Name, "error", err)
		}
		api.AbortWithError(c, err)
		return
	}

	logger.Info("plan created", "plan_id", p.ID, "name", p.Name)
	api.OK(c, http.StatusCreated, p)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		api.AbortWithError(c, err)
		return
	}

	var req UpdatePlanRequest
	if !api.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		if api.KindOf(err) == api.KindInternal {
			logger.Error("failed to update plan", "plan_id", id, "error", err)
		}
		api.AbortWithError(c, err)
		return
	}

	api.OK(c, http.StatusOK, p)
}

// Delete soft-deletes the plan; existing subscriptions keep their binding.
func (h *Handler) Delete(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		api.AbortWithError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if api.KindOf(err) == api.KindInternal {
			logger.Error("failed to delete plan", "plan_id", id, "error", err)
		}
		api.AbortWithError(c, err)
		return
	}

	logger.Info("plan deactivated", "plan_id", id)
	api.OKWithMessage(c, gin.H{}, "Plan successfully deleted")
}
