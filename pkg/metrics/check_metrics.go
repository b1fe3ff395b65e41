package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CheckMetrics 每日检查相关指标。未安装 MeterProvider 时 otel 返回 no-op 实现
type CheckMetrics struct {
	checksTotal        metric.Int64Counter
	postsTotal         metric.Int64Counter
	verifyDuration     metric.Float64Histogram
	batchDuration      metric.Float64Histogram
	batchParticipants  metric.Int64Counter
	notificationsTotal metric.Int64Counter
}

var (
	instance *CheckMetrics
	once     sync.Once
)

// Get 懒加载，首次调用时使用当前的全局 MeterProvider
func Get() *CheckMetrics {
	once.Do(func() {
		m, err := newCheckMetrics(otel.Meter("pushorshame"))
		if err != nil {
			otel.Handle(err)
			m = nil
		}
		instance = m
	})
	return instance
}

func newCheckMetrics(meter metric.Meter) (*CheckMetrics, error) {
	m := &CheckMetrics{}
	var err error

	if m.checksTotal, err = meter.Int64Counter("pushorshame.checks.total",
		metric.WithDescription("Daily check outcomes"),
		metric.WithUnit("{check}"),
	); err != nil {
		return nil, err
	}
	if m.postsTotal, err = meter.Int64Counter("pushorshame.posts.total",
		metric.WithDescription("Social post attempts by kind and result"),
		metric.WithUnit("{post}"),
	); err != nil {
		return nil, err
	}
	if m.verifyDuration, err = meter.Float64Histogram("pushorshame.verify.duration",
		metric.WithDescription("Activity verification latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.batchDuration, err = meter.Float64Histogram("pushorshame.batch.duration",
		metric.WithDescription("Daily batch run duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.batchParticipants, err = meter.Int64Counter("pushorshame.batch.participants",
		metric.WithDescription("Participants processed by the daily batch"),
		metric.WithUnit("{participant}"),
	); err != nil {
		return nil, err
	}
	if m.notificationsTotal, err = meter.Int64Counter("pushorshame.notifications.total",
		metric.WithDescription("Push notifications sent by category and result"),
		metric.WithUnit("{notification}"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CheckMetrics) RecordCheck(ctx context.Context, outcome, trigger string) {
	if m == nil {
		return
	}
	m.checksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("trigger", trigger),
	))
}

func (m *CheckMetrics) RecordPost(ctx context.Context, kind string, sent bool) {
	if m == nil {
		return
	}
	m.postsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("sent", sent),
	))
}

func (m *CheckMetrics) RecordVerify(ctx context.Context, source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.verifyDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("error", err != nil),
	))
}

func (m *CheckMetrics) RecordBatch(ctx context.Context, d time.Duration, processed int, failed int) {
	if m == nil {
		return
	}
	m.batchDuration.Record(ctx, d.Seconds())
	m.batchParticipants.Add(ctx, int64(processed-failed), metric.WithAttributes(attribute.Bool("failed", false)))
	m.batchParticipants.Add(ctx, int64(failed), metric.WithAttributes(attribute.Bool("failed", true)))
}

func (m *CheckMetrics) RecordNotification(ctx context.Context, category string, err error) {
	if m == nil {
		return
	}
	m.notificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.Bool("error", err != nil),
	))
}
