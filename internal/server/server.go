package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"planpass/internal/api"
	"planpass/internal/auth"
	"planpass/internal/config"
	"planpass/internal/plan"
	"planpass/internal/subscription"
	"planpass/internal/user"

	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

// Deps are the services the HTTP surface is built on.
type Deps struct {
	DB            Pinger
	Users         user.Service
	Plans         plan.Service
	Subscriptions subscription.Service
	Sweeper       subscription.SweepRunner
}

type Server struct {
	router *gin.Engine
	http   *http.Server
}

func New(cfg *config.Config, deps Deps) *Server {
	api.UseJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	userHandler := user.NewHandler(deps.Users)
	planHandler := plan.NewHandler(deps.Plans)
	subscriptionHandler := subscription.NewHandler(deps.Subscriptions, deps.Sweeper)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	adminMiddleware := auth.RequireRole(auth.RoleAdmin)

	router.GET("/", Root)
	router.GET("/health", Health(deps.DB))
	router.GET("/metrics", Metrics())

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", userHandler.Register)
		authGroup.POST("/login", userHandler.Login)
		authGroup.GET("/me", authMiddleware, userHandler.Me)
		authGroup.POST("/promote", authMiddleware, adminMiddleware, userHandler.Promote)
	}

	plans := router.Group("/plans")
	{
		plans.GET("", planHandler.List)
		plans.GET("/:id", planHandler.Get)
		plans.POST("", authMiddleware, adminMiddleware, planHandler.Create)
		plans.PUT("/:id", authMiddleware, adminMiddleware, planHandler.Update)
		plans.DELETE("/:id", authMiddleware, adminMiddleware, planHandler.Delete)
	}

	subscriptions := router.Group("/subscriptions")
	subscriptions.Use(authMiddleware)
	{
		subscriptions.POST("", subscriptionHandler.Create)
		subscriptions.GET("/check-expired", adminMiddleware, subscriptionHandler.CheckExpired)
		subscriptions.GET("/:userId", subscriptionHandler.Get)
		subscriptions.PUT("/:userId", subscriptionHandler.Update)
		subscriptions.DELETE("/:userId", subscriptionHandler.Cancel)
		subscriptions.GET("/:userId/history", subscriptionHandler.History)
	}

	router.NoRoute(func(c *gin.Context) {
		api.Fail(c, http.StatusNotFound, "Route not found")
	})

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
