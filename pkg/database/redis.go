package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/social-api/internal/config"
)

const redisPingTimeout = 5 * time.Second

// NewUniversalRedisClient подключается к Redis в режиме single, sentinel или cluster
// и проверяет соединение ping-ом.
func NewUniversalRedisClient(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	options, mode, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewUniversalClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (mode: %s, addrs: %v): %w", mode, options.Addrs, err)
	}
	return client, nil
}

// redisOptions переводит конфигурацию в опции UniversalClient.
// Тип клиента go-redis выбирает сам: MasterName -> sentinel, несколько адресов -> cluster.
func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	addrs := cfg.Addrs
	if len(addrs) == 0 && cfg.Addr != "" {
		addrs = []string{cfg.Addr}
	}
	if len(addrs) == 0 {
		return nil, "", fmt.Errorf("redis configuration error: addrs or addr must be provided")
	}

	mode := cfg.Mode
	if mode == "" {
		mode = "single"
	}

	options := &redis.UniversalOptions{
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoff) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoff) * time.Millisecond,
	}

	switch mode {
	case "single":
		// лишние адреса превратили бы клиент в кластерный
		options.Addrs = addrs[:1]
	case "sentinel":
		if cfg.MasterName == "" {
			return nil, "", fmt.Errorf("redis sentinel mode requires master_name")
		}
		options.Addrs = addrs
		options.MasterName = cfg.MasterName
	case "cluster":
		options.Addrs = addrs
		// в кластере есть только DB 0
		options.DB = 0
	default:
		return nil, "", fmt.Errorf("unsupported redis mode: %s", mode)
	}
	return options, mode, nil
}
