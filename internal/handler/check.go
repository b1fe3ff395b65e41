package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"PushOrShame/internal/middleware"
	"PushOrShame/internal/model/dto"
	"PushOrShame/internal/service"
	pkgerrors "PushOrShame/pkg/errors"
	"PushOrShame/pkg/response"
)

// participantID 从 JWT 身份解析 public_id
func participantID(ctx context.Context, c *app.RequestContext) (int64, error) {
	raw, ok := middleware.GetParticipantID(ctx, c)
	if !ok {
		return 0, pkgerrors.Unauthorized
	}
	return service.ParsePublicID(raw)
}

// CheckToday 手动触发当日检查，必要时先补检昨天
// POST /v1/checks/today
func CheckToday(ctx context.Context, c *app.RequestContext) {
	pid, err := participantID(ctx, c)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	result, err := service.AdHoc().CheckToday(ctx, pid)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	// 今天还没有结论时返回 202
	if result.Today == nil || result.Today.Outcome == string(service.OutcomePending) ||
		result.Today.Outcome == string(service.OutcomeInProgress) {
		response.Accepted(ctx, c, result)
		return
	}
	response.Success(ctx, c, result)
}

// GetCheckHistory 最近的检查记录，按日期倒序
// GET /v1/checks/history?limit=
func GetCheckHistory(ctx context.Context, c *app.RequestContext) {
	pid, err := participantID(ctx, c)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	var query dto.CheckHistoryQuery
	if err := c.BindQuery(&query); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Participant().GetHistory(ctx, pid, query.Limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
