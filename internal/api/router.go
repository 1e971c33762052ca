package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"carshop-display-backend/config"
	"carshop-display-backend/internal/mw"
)

// NewRouter creates and configures the gin router. ws serves /api/ws and may be nil.
// Background housekeeping stops when ctx is done.
func NewRouter(ctx context.Context, cfg *config.Config, handler *Handler, ws http.Handler) *gin.Engine {
	r := gin.Default()

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	go pruneVisitors(ctx, limiter)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	handler.responses = cacheStore
	caching := mw.Cache(cacheStore, ttl)
	flush := mw.FlushOnWrite(cacheStore)
	operator := mw.RequireOperator()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(limiter.Middleware(), mw.Actor(cfg.Auth.JWTSecret))
	{
		api.GET("/me", handler.GetMe)

		api.GET("/screens", handler.ListScreens)
		api.GET("/screens/:id", handler.GetScreen)
		api.GET("/screens/:id/history", handler.GetScreenHistory)
		api.POST("/screens/refresh", operator, handler.RefreshScreens)
		api.POST("/screens/:id/assign", operator, handler.AssignScreen)
		api.DELETE("/screens/:id", operator, handler.ClearScreen)

		api.GET("/dashboard", handler.GetDashboard)

		api.GET("/services", caching, handler.ListServices)
		api.GET("/services/estimate", handler.EstimateService)
		api.POST("/services", operator, flush, handler.AddService)
		api.DELETE("/services/:position", operator, flush, handler.RemoveService)
		api.PUT("/services", operator, flush, handler.SaveServices)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		if ws != nil {
			api.GET("/ws", gin.WrapH(ws))
		}
	}

	return r
}

func pruneVisitors(ctx context.Context, limiter *mw.IPRateLimiter) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(30 * time.Minute); n > 0 {
				log.Printf("rate limiter: dropped %d idle clients", n)
			}
		}
	}
}
