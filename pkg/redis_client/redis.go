package redis_client

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/travigo/raptor/pkg/config"
)

var Client *redis.Client

func Connect(ctx context.Context, cfg config.Redis) error {
	options := &redis.Options{
		Addr: cfg.Address,
		DB:   cfg.Database,
	}

	if cfg.Password != "" {
		options.Password = cfg.Password
	}

	Client = redis.NewClient(options)

	return Client.Ping(ctx).Err()
}
