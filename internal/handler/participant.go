package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"PushOrShame/internal/service"
	"PushOrShame/pkg/response"
)

// GetMyStats 当前参与者的计数器、徽章和已播报里程碑
// GET /v1/me/stats
func GetMyStats(ctx context.Context, c *app.RequestContext) {
	pid, err := participantID(ctx, c)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	result, err := service.Participant().GetStats(ctx, pid)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
