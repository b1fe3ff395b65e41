package database

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey    = "otel:span"
	startedKey = "otel:started"
	maxSQLLen  = 500
)

// TracingPlugin 给每条 gorm 语句开一个 span，并记录查询耗时
type TracingPlugin struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
}

func NewTracingPlugin(serviceName string) *TracingPlugin {
	p := &TracingPlugin{tracer: otel.Tracer(serviceName + ".gorm")}

	hist, err := otel.Meter(serviceName+".gorm").Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
	)
	if err == nil {
		p.duration = hist
	}
	return p
}

func (p *TracingPlugin) Name() string {
	return "otel-tracing"
}

func (p *TracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name     string
		register func(string, func(*gorm.DB)) error
		after    func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		op := h.name
		if err := h.register("otel:before_"+op, p.before(op)); err != nil {
			return err
		}
		if err := h.after("otel:after_"+op, p.after(op)); err != nil {
			return err
		}
	}
	return nil
}

func (p *TracingPlugin) before(op string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		_, span := p.tracer.Start(ctx, "gorm."+op, trace.WithSpanKind(trace.SpanKindClient))
		tx.InstanceSet(spanKey, span)
		tx.InstanceSet(startedKey, time.Now())
	}
}

func (p *TracingPlugin) after(op string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(spanKey)
		if !ok {
			return
		}
		span, ok := v.(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		sql := tx.Statement.SQL.String()
		if len(sql) > maxSQLLen {
			sql = sql[:maxSQLLen]
		}
		span.SetAttributes(
			attribute.String("db.system", tx.Dialector.Name()),
			attribute.String("db.operation", op),
			attribute.String("db.sql.table", tx.Statement.Table),
			attribute.String("db.statement", sql),
			attribute.Int64("db.rows_affected", tx.Statement.RowsAffected),
		)
		if tx.Error != nil && tx.Error != gorm.ErrRecordNotFound {
			span.RecordError(tx.Error)
			span.SetStatus(codes.Error, tx.Error.Error())
		}

		if p.duration == nil {
			return
		}
		if started, ok := tx.InstanceGet(startedKey); ok {
			if t, ok := started.(time.Time); ok {
				ctx := tx.Statement.Context
				if ctx == nil {
					ctx = context.Background()
				}
				p.duration.Record(ctx, time.Since(t).Seconds(),
					metric.WithAttributes(
						attribute.String("db.operation", op),
						attribute.String("db.sql.table", tx.Statement.Table),
					))
			}
		}
	}
}
