package main

import (
	"database/sql"
	"time"

	"github.com/adityapallipati/voice-agent/internal/httpapi"
	"github.com/adityapallipati/voice-agent/internal/rbac"
	"github.com/adityapallipati/voice-agent/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type routeConfig struct {
	authMW        gin.HandlerFunc
	webhookSecret string
	redis         *redis.Client
	maxConcurrent int
	capTTL        time.Duration
	db            *sql.DB
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, rc routeConfig) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if rc.db != nil {
			if err := utils.HealthCheck(c.Request.Context(), rc.db, 2*time.Second); err != nil {
				c.JSON(503, gin.H{"status": "degraded", "db": err.Error()})
				return
			}
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public path, authenticated by shared secret).
	hooks := r.Group("/webhooks/voice")
	hooks.Use(httpapi.RequireWebhookSecret(rc.webhookSecret))
	{
		hooks.POST("/call", httpapi.CallConcurrencyCap(rc.redis, rc.maxConcurrent, rc.capTTL), h.HandleInboundCall)
		hooks.POST("/status", h.HandleCallStatus)
	}

	// protected API group
	v1 := r.Group("/v1")

	// Token issuance sits outside the auth middleware.
	v1.POST("/auth/login", h.Login)

	v1.Use(rc.authMW)
	{
		// Identity echo for console debugging.
		v1.GET("/me", func(c *gin.Context) {
			uid := c.GetString("user_id")
			role := c.GetString("role")
			c.JSON(200, gin.H{"user_id": uid, "role": role})
		})

		// CALLS routes
		callsGroup := v1.Group("/calls")
		callsGroup.Use(rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleViewer))
		{
			callsGroup.GET("", h.ListCalls)
			callsGroup.GET("/:call_id", h.GetCall)
		}

		// APPOINTMENTS routes
		appts := v1.Group("/appointments")
		appts.Use(rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleViewer))
		{
			appts.GET("", h.ListAppointments)
			appts.GET("/:id", h.GetAppointment)
		}
		v1.POST("/appointments/:id/cancel", rbac.RequireAnyRole(rbac.RoleOperator), h.CancelAppointment)

		// CALLBACKS routes
		cbs := v1.Group("/callbacks")
		cbs.Use(rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleViewer))
		{
			cbs.GET("", h.ListCallbacks)
			cbs.GET("/:id", h.GetCallback)
		}
		v1.POST("/callbacks", rbac.RequireAnyRole(rbac.RoleOperator), h.EnqueueCallback)
		v1.POST("/callbacks/:id/cancel", rbac.RequireAnyRole(rbac.RoleOperator), h.CancelCallback)
		v1.POST("/callbacks/:id/script", rbac.RequireAnyRole(rbac.RoleOperator), h.RegenerateCallbackScript)

		// REPORTS routes
		reports := v1.Group("/reports")
		reports.Use(rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleViewer))
		{
			reports.GET("/calls", h.CallsReport)
			reports.GET("/callbacks", h.CallbacksReport)
			reports.GET("/appointments", h.AppointmentsReport)
		}

		// PROMPTS routes. Template edits change live call behavior; admin only.
		promptsGroup := v1.Group("/prompts")
		promptsGroup.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			promptsGroup.GET("/:name", h.GetPrompt)
			promptsGroup.POST("", h.CreatePrompt)
			promptsGroup.PUT("/:name", h.UpdatePrompt)
			promptsGroup.DELETE("/:name", h.DeletePrompt)
		}

		// ADMIN routes
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.GET("/ping", func(c *gin.Context) {
				c.JSON(200, gin.H{"status": "ok"})
			})
			admin.POST("/callbacks/sweep", h.RunSweep)
			admin.POST("/calls/reap", h.ReapStale)
		}
	}
}
