package cache

import (
	"os"
	"sync"

	"faceguard.io/infrastructure/logger"
	"github.com/redis/go-redis/v9"
)

var (
	Client *redis.Client
	once   sync.Once
)

func ConnectToCache() {
	connectRedis()
}

func connectRedis() {
	once.Do(func() {
		opt := &redis.Options{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
			PoolSize: 10,
		}
		Client = redis.NewClient(opt)
		logger.Info("connected to redis successfully")
	})
}

func GetInstance() *redis.Client {
	connectRedis()
	return Client
}
