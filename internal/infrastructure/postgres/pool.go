package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/productivity-api/pkg/config"
)

// NewPool crea el pool de conexiones de larga vida (una vez por proceso, se cierra en el apagado).
// El host de Supabase suele resolver también AAAA; en contenedores sin IPv6 se fuerza IPv4 al marcar.
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolConfig.ConnConfig.DialFunc = dialPreferIPv4
	applyPoolLimits(poolConfig, cfg)

	// NUMERIC <-> shopspring/decimal para los importes de pedidos.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB %s: %w", redactDSN(cfg.ConnectionString()), err)
	}
	return pool, nil
}

// applyPoolLimits copia los límites configurados; valores no positivos conservan el default de pgx.
func applyPoolLimits(pc *pgxpool.Config, cfg config.DBConfig) {
	if cfg.PoolMax > 0 {
		pc.MaxConns = int32(cfg.PoolMax)
	}
	if cfg.PoolMin > 0 && int32(cfg.PoolMin) <= pc.MaxConns {
		pc.MinConns = int32(cfg.PoolMin)
	}
	if cfg.PoolIdle > 0 {
		pc.MaxConnIdleTime = cfg.PoolIdle
	}
	pc.MaxConnLifetime = time.Hour
	pc.HealthCheckPeriod = time.Minute
}

func dialPreferIPv4(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	if ipv4, err := lookupIPv4(ctx, host); err == nil {
		return dialer.DialContext(ctx, "tcp4", net.JoinHostPort(ipv4, port))
	}
	return dialer.DialContext(ctx, network, addr)
}

// lookupIPv4 usa el resolver del sistema y, si solo hay AAAA, un DNS público.
func lookupIPv4(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			return host, nil
		}
		return "", fmt.Errorf("%s es IPv6", host)
	}
	resolvers := []*net.Resolver{
		net.DefaultResolver,
		{
			PreferGo: true,
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				d := net.Dialer{}
				return d.DialContext(ctx, "udp", "8.8.8.8:53")
			},
		},
	}
	var lastErr error
	for _, r := range resolvers {
		ips, err := r.LookupIP(ctx, "ip4", host)
		if err != nil {
			lastErr = err
			continue
		}
		if len(ips) > 0 {
			return ips[0].String(), nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no hay IPv4 para %s", host)
	}
	return "", lastErr
}

// redactDSN oculta la contraseña para poder loguear el destino.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<dsn inválido>"
	}
	return u.Redacted()
}
