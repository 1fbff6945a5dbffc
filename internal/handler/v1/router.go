package v1

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/ratelimit"
	"github.com/dmehra2102/prod-golang-projects/medscan/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Collector

	Tokens  TokenValidator
	Scans   ScanApplier
	History HistoryLister
	Auth    Authenticator
	Ready   func(ctx context.Context) error

	// GlobalLimiter applies to every request, AuthLimiter additionally to /auth.
	GlobalLimiter *ratelimit.IPLimiter
	AuthLimiter   *ratelimit.IPLimiter
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		RequestID(),
		Recovery(d.Logger),
		Logger(d.Logger),
		Metrics(d.Metrics),
		SecurityHeaders(),
		CORS(d.Config.CORS),
		RateLimit(d.GlobalLimiter),
	)

	health := NewHealthHandler(d.Ready, d.Config.App.Version)
	r.GET("/healthz", health.Live)
	r.GET("/readyz", health.Ready)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	authHandler := NewAuthHandler(d.Auth)
	scanHandler := NewScanHandler(d.Scans)
	historyHandler := NewHistoryHandler(d.History)
	requireToken := Authenticate(d.Tokens)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth", RateLimit(d.AuthLimiter))
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", requireToken, authHandler.Logout)

	protected := api.Group("", requireToken)
	protected.POST("/scans", scanHandler.Apply)
	protected.GET("/history", historyHandler.List)

	return r
}
