package user

import (
	"net/http"

	"planpass/internal/api"
	"planpass/internal/auth"
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

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !api.BindJSON(c, &req) {
		return
	}

	session, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if api.KindOf(err) == api.KindInternal {
			logger.Error("failed to register user", "email", req.Email, "error", err)
		}
		api.AbortWithError(c, err)
		return
	}

	logger.Info("user registered", "user_id", session.User.ID)
	api.OK(c, http.StatusCreated, session)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "Please provide an email and password")
		return
	}

	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if api.KindOf(err) == api.KindInternal {
			logger.Error("login failed", "error", err)
		}
		api.AbortWithError(c, err)
		return
	}

	api.OK(c, http.StatusOK, session)
}

// Me returns the profile behind the bearer token.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "not authorized")
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), userID)
	if err != nil {
		api.AbortWithError(c, err)
		return
	}

	api.OK(c, http.StatusOK, user)
}

func (h *Handler) Promote(c *gin.Context) {
	var req PromoteRequest
	if !api.BindJSON(c, &req) {
		return
	}

	user, err := h.service.Promote(c.Request.Context(), req.Email)
	if err != nil {
		api.AbortWithError(c, err)
		return
	}

	logger.Info("user promoted to admin", "user_id", user.ID)
	api.OK(c, http.StatusOK, user)
}
