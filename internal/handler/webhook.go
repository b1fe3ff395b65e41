package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"PushOrShame/config"
	"PushOrShame/internal/service"
	pkgerrors "PushOrShame/pkg/errors"
	"PushOrShame/pkg/logger"
	"PushOrShame/pkg/response"
	"PushOrShame/utils"
)

const (
	headerGitHubEvent     = "X-GitHub-Event"
	headerGitHubDelivery  = "X-GitHub-Delivery"
	headerGitHubSignature = "X-Hub-Signature-256"
)

// GitHubWebhook GitHub 投递入口，签名不对直接拒绝
// POST /v1/webhooks/github
func GitHubWebhook(ctx context.Context, c *app.RequestContext) {
	body := c.Request.Body()
	signature := string(c.GetHeader(headerGitHubSignature))
	if !utils.VerifySignature(config.Cfg.GitHubWebhookSecret, body, signature) {
		logger.Logger.Warn("Webhook signature rejected",
			zap.String("client_ip", c.ClientIP()),
			zap.ByteString("delivery", c.GetHeader(headerGitHubDelivery)),
		)
		response.Error(ctx, c, pkgerrors.WebhookSignatureInvalid)
		return
	}

	event := string(c.GetHeader(headerGitHubEvent))
	if event == "" {
		response.Error(ctx, c, pkgerrors.WebhookPayloadInvalid)
		return
	}

	ack, err := service.Webhook().Handle(ctx, event, string(c.GetHeader(headerGitHubDelivery)), body)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, ack)
}
