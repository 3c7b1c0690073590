package ports

import (
	"context"
	"time"
)

// Cache puerto de la caché clave/valor. Sin garantía de durabilidad: perderla
// solo degrada el rate limiting y el refresh de tokens, nunca los datos primarios.
// Implementaciones: memoria del proceso o Redis.
type Cache interface {
	// Get devuelve ok=false en un miss (o si la entrada expiró).
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set con ttl <= 0 no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Increment suma amount; si la clave es nueva aplica ttl (ventana fija).
	Increment(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error)

	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (value string, ok bool, err error)
	HDel(ctx context.Context, key, field string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error

	Ping(ctx context.Context) error
	Close() error
}
