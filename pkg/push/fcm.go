// Package push 通过 Firebase Cloud Messaging 给参与者设备推送通知。
package push

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"PushOrShame/pkg/logger"
)

// ErrTokenNotRegistered 设备 token 已失效，调用方应清除
var ErrTokenNotRegistered = stderrors.New("device token not registered")

type Notification struct {
	DeviceToken string
	Title       string
	Body        string
	Data        map[string]string
}

type Notifier interface {
	Send(ctx context.Context, n Notification) (string, error)
}

type FCMNotifier struct {
	client *messaging.Client
}

// NewFCMNotifier 优先使用 base64 编码的 service account JSON，其次使用文件
func NewFCMNotifier(ctx context.Context, encodedJSON, credentialsFile string) (*FCMNotifier, error) {
	var opt option.ClientOption
	switch {
	case encodedJSON != "":
		decoded, err := base64.StdEncoding.DecodeString(encodedJSON)
		if err != nil {
			return nil, fmt.Errorf("decode FCM credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	case credentialsFile != "":
		opt = option.WithCredentialsFile(credentialsFile)
	default:
		return nil, fmt.Errorf("no FCM credentials configured")
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	return &FCMNotifier{client: client}, nil
}

func (f *FCMNotifier) Send(ctx context.Context, n Notification) (string, error) {
	if n.DeviceToken == "" {
		return "", ErrTokenNotRegistered
	}

	msg := &messaging.Message{
		Token: n.DeviceToken,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	id, err := f.client.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) {
			return "", ErrTokenNotRegistered
		}
		return "", fmt.Errorf("send FCM message: %w", err)
	}
	return id, nil
}

// LogNotifier 未配置 FCM 时使用，只写日志
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, n Notification) (string, error) {
	logger.Logger.Info("Push notification (log only)",
		zap.String("title", n.Title),
		zap.String("body", n.Body),
	)
	return "", nil
}
