package response

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"PushOrShame/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

func errorToHTTPStatus(err error) int {
	if errors.IsVerificationError(err) {
		return http.StatusBadGateway // 502
	}

	var def errors.Definition
	if !stderrors.As(err, &def) {
		return http.StatusInternalServerError
	}

	// 根据错误码映射 HTTP 状态码
	switch def.Code {
	case errors.TooManyRequests.Code:
		return http.StatusTooManyRequests // 429
	case errors.InvalidRequest.Code, errors.InvalidParticipantID.Code,
		errors.CheckDateInvalid.Code, errors.WebhookPayloadInvalid.Code:
		return http.StatusBadRequest // 400
	case errors.Unauthorized.Code, errors.WebhookSignatureInvalid.Code:
		return http.StatusUnauthorized // 401
	case errors.ParticipantIneligible.Code, errors.ActivitySourceMissing.Code:
		return http.StatusForbidden // 403
	case errors.ParticipantNotFound.Code:
		return http.StatusNotFound // 404
	case errors.CheckConflict.Code, errors.CheckDateStale.Code, errors.BatchAlreadyRunning.Code:
		return http.StatusConflict // 409
	default:
		return http.StatusInternalServerError // 500
	}
}

func errorDetail(err error) ErrorDetail {
	var def errors.Definition
	if stderrors.As(err, &def) {
		return ErrorDetail{Code: def.Code, Message: def.Message}
	}
	return ErrorDetail{Code: "INTERNAL_ERROR", Message: err.Error()}
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(errorToHTTPStatus(err), ErrorResponse{Error: errorDetail(err)})
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	detail := errorDetail(err)
	detail.Details = details
	c.JSON(errorToHTTPStatus(err), ErrorResponse{Error: detail})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

// Accepted 已受理但结果尚未确定（当天未结束、另一个调用方正在处理）
func Accepted(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusAccepted, SuccessResponse{
		Data: data,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}
