package storage

import (
	"PushOrShame/storage/database"
	"PushOrShame/storage/mq"
	"PushOrShame/storage/redis"
)

// Init 初始化数据库、Redis 和 RabbitMQ
func Init() error {
	if err := InitCore(); err != nil {
		return err
	}

	return mq.Init()
}

// InitCore 只初始化数据库和 Redis，运维命令不依赖 MQ
func InitCore() error {
	if err := database.Init(); err != nil {
		return err
	}

	return redis.Init()
}
