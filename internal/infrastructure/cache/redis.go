package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/pkg/config"
)

// KeyPrefix espacio de nombres compartido con otras instancias del proceso.
const KeyPrefix = "productivity_app:"

var _ ports.Cache = (*Redis)(nil)

// Redis implementación de ports.Cache sobre go-redis; el TTL lo aplica el servidor.
type Redis struct {
	client *redis.Client
}

// NewRedis crea el cliente desde REDIS_URL o REDIS_HOST/REDIS_PORT y verifica conectividad.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// NewRedisFromClient envuelve un cliente existente (tests, pub/sub compartido).
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Client expone el cliente para el broadcaster de tiempo real.
func (r *Redis) Client() *redis.Client { return r.client }

func k(key string) string { return KeyPrefix + key }

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, k(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, k(key), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, k(key)).Err()
}

func (r *Redis) Increment(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error) {
	n, err := r.client.IncrBy(ctx, k(key), amount).Result()
	if err != nil {
		return 0, err
	}
	// Primer incremento de la ventana: fijar expiración
	if n == amount && ttl > 0 {
		if err := r.client.Expire(ctx, k(key), ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (r *Redis) HSet(ctx context.Context, key, field, value string) error {
	return r.client.HSet(ctx, k(key), field, value).Err()
}

func (r *Redis) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := r.client.HGet(ctx, k(key), field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) HDel(ctx context.Context, key, field string) error {
	return r.client.HDel(ctx, k(key), field).Err()
}

func (r *Redis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return r.client.HGetAll(ctx, k(key)).Result()
}

func (r *Redis) LPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return r.client.LPush(ctx, k(key), args...).Err()
}

func (r *Redis) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.client.LRange(ctx, k(key), start, stop).Result()
}

func (r *Redis) LTrim(ctx context.Context, key string, start, stop int64) error {
	return r.client.LTrim(ctx, k(key), start, stop).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
