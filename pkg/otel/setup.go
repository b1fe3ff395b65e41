package otel

import (
	"context"

	"PushOrShame/config"
)

// Version 构建时通过 -ldflags "-X PushOrShame/pkg/otel.Version=..." 注入
var Version = "dev"

// Setup 按全局配置初始化；未开启追踪时返回空的清理函数
func Setup(ctx context.Context, component string) (func(context.Context) error, error) {
	if !config.Cfg.TracingEnabled {
		return func(context.Context) error { return nil }, nil
	}
	return InitOpenTelemetry(ctx, Config{
		ServiceName:    config.Cfg.ServiceName + "-" + component,
		ServiceVersion: Version,
		Environment:    config.Cfg.Environment,
		OTLPEndpoint:   config.Cfg.OTLPEndpoint,
		Insecure:       config.Cfg.OTLPInsecure,
		SampleRatio:    config.Cfg.TracingSampler,
	})
}
