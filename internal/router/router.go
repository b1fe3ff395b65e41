package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"PushOrShame/internal/handler"
	"PushOrShame/internal/middleware"
)

func Register(h *server.Hertz) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.RequestMetricsMiddleware())

	h.GET("/healthz", handler.Healthz)

	v1 := h.Group("/v1")

	// GitHub 投递用签名鉴权，不走 JWT
	webhooks := v1.Group("/webhooks", middleware.WebhookRateLimitMiddleware())
	{
		webhooks.POST("/github", handler.GitHubWebhook)
	}

	// 每日检查路由
	checks := v1.Group("/checks")
	checks.Use(middleware.AuthMiddleware())
	{
		checks.POST("/today", middleware.AdHocCheckRateLimitMiddleware(), handler.CheckToday)
		checks.GET("/history", handler.GetCheckHistory)
	}

	me := v1.Group("/me")
	me.Use(middleware.AuthMiddleware())
	{
		me.GET("/stats", handler.GetMyStats)
	}
}
