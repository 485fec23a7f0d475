package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/group-invite-service/internal/broadcast"
    "github.com/iliyamo/group-invite-service/internal/config"
    "github.com/iliyamo/group-invite-service/internal/handler"
    "github.com/iliyamo/group-invite-service/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // The health endpoint can be used by load balancers or monitoring
    // systems to verify that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterInvites wires the invite endpoints.  Browse endpoints are
// public (guests scan invites before signing in) and may be rate limited
// and cached; every mutating endpoint requires a valid access token.
func RegisterInvites(e *echo.Echo, h *handler.InviteHandler, hub *broadcast.Hub, jwtSecret string, rdb *redis.Client, rlCfg config.RateLimitConfig, cacheCfg config.CacheConfig) {
    limiter := middleware.NewTokenBucket(rlCfg, rdb)
    cache := middleware.NewRedisCache(cacheCfg, rdb)
    invalidate := middleware.NewCacheInvalidator(cacheCfg, rdb)

    // Public browse surface.  The event stream is public too: it only
    // carries state every browsing client can already GET.
    e.GET("/v1/invites", h.ListOpen, limiter, cache)
    e.GET("/v1/invites/:id", h.Get, limiter)
    e.GET("/v1/invites/:id/events", broadcast.ServeWS(hub))

    // Protected group: every handler below requires a valid access
    // token issued by the external auth service.
    auth := e.Group("/v1")
    auth.Use(limiter)
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole("OWNER", "CUSTOMER"))
    auth.Use(invalidate)

    auth.POST("/invites", h.Create)
    auth.GET("/my-invites", h.ListMine)
    auth.POST("/invites/:id/join", h.Join)
    auth.POST("/invites/:id/confirm", h.Confirm)
    auth.POST("/invites/:id/leave", h.Leave)
    auth.DELETE("/invites/:id", h.Cancel)
}
