package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"PushOrShame/config"
)

// 交换机与队列拓扑
const (
	ExchangeNotification = "notification.topic"
	ExchangeEvents       = "events.topic"

	QueueNotificationPush = "notification.push"
	QueueCheckCompleted   = "events.check.completed"

	RoutingKeyNotificationPush = "notification.push"
	RoutingKeyCheckCompleted   = "check.completed"
)

type binding struct {
	exchange   string
	queue      string
	routingKey string
}

var bindings = []binding{
	{ExchangeNotification, QueueNotificationPush, RoutingKeyNotificationPush},
	{ExchangeEvents, QueueCheckCompleted, RoutingKeyCheckCompleted},
}

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

func Init() error {
	connOnce.Do(func() {
		conn, connErr = amqp.Dial(config.Cfg.GetRabbitMQURL())
		if connErr != nil {
			return
		}
		connErr = declareTopology()
	})
	return connErr
}

func Connection() *amqp.Connection {
	return conn
}

func declareTopology() error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open topology channel: %w", err)
	}
	defer ch.Close()

	declared := map[string]bool{}
	for _, b := range bindings {
		if !declared[b.exchange] {
			if err := ch.ExchangeDeclare(b.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", b.exchange, err)
			}
			declared[b.exchange] = true
		}
		if _, err := ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.queue, err)
		}
		if err := ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.queue, err)
		}
	}
	return nil
}

func Close(ctx context.Context) error {
	if conn == nil || conn.IsClosed() {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
