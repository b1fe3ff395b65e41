package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"PushOrShame/internal/model"
	"PushOrShame/internal/model/dto"
	pkgerrors "PushOrShame/pkg/errors"
	"PushOrShame/pkg/logger"
	"PushOrShame/utils"
)

type Checker interface {
	Check(ctx context.Context, req CheckRequest) *CheckResult
}

type ParticipantLookup interface {
	GetParticipantByPublicID(ctx context.Context, publicID int64) (*model.Participant, error)
}

// AdHocService 参与者主动触发。
// 昨天已经结束，按最终结论补检；今天尚未结束，没有提交时只返回 Pending
type AdHocService struct {
	participants ParticipantLookup
	checker      Checker
	now          func() time.Time
}

func NewAdHocService(participants ParticipantLookup, checker Checker) *AdHocService {
	return &AdHocService{participants: participants, checker: checker, now: time.Now}
}

func (s *AdHocService) CheckToday(ctx context.Context, publicID int64) (*dto.AdHocCheckResponse, error) {
	p, err := s.participants.GetParticipantByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !p.ActivitySourceLinked() {
		return nil, pkgerrors.ActivitySourceMissing
	}
	if !p.Eligible() {
		return nil, pkgerrors.ParticipantIneligible
	}

	now := s.now()
	resp := &dto.AdHocCheckResponse{}

	// 只有被检查过的参与者才补昨天，新加入的人不因加入前一天被处刑
	yesterday := utils.YesterdayWindow(now).Date
	if p.LastCheckedDate != nil && utils.DaysBetween(*p.LastCheckedDate, yesterday) > 0 {
		res := s.checker.Check(ctx, CheckRequest{
			ParticipantID: p.ID,
			Date:          yesterday,
			Trigger:       model.CheckTriggerAdHoc,
			Finalize:      true,
		})
		resp.Yesterday = ResultData(res)
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		// 昨天没有结论时不能先提交今天，否则昨天会变成过期日期
		if !res.Outcome.Terminal() && res.Outcome != OutcomeRejected {
			logger.Logger.Warn("Catch-up check for yesterday did not finish",
				zap.Int64("participant_id", p.ID),
				zap.String("outcome", string(res.Outcome)),
				zap.Error(res.Err),
			)
			return resp, nil
		}
	}

	res := s.checker.Check(ctx, CheckRequest{
		ParticipantID: p.ID,
		Date:          utils.TodayWindow(now).Date,
		Trigger:       model.CheckTriggerAdHoc,
		Finalize:      false,
	})
	resp.Today = ResultData(res)
	return resp, nil
}
