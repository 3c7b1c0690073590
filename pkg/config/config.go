package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Secretos por defecto; en producción su uso aborta el arranque.
const (
	DefaultJWTSecret        = "your-super-secret-jwt-key-change-in-production"
	DefaultJWTRefreshSecret = "your-super-secret-refresh-key-change-in-production"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	AI        AIConfig
	Mapbox    MapboxConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	Version  string
	LogLevel string
	LogDir   string // vacío = solo stdout
}

// IsProduction indica si el entorno es producción.
func (c AppConfig) IsProduction() bool { return c.Env == "production" }

// IsDevelopment indica si el entorno es desarrollo.
func (c AppConfig) IsDevelopment() bool { return c.Env == "development" }

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo (ej. DATABASE_URL de Supabase).
type DBConfig struct {
	DatabaseURL string
	SupabaseURL string
	ServiceKey  string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	PoolMax     int
	PoolMin     int
	PoolIdle    time.Duration
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL, luego SUPABASE_URL + service key, luego DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if dsn := c.supabaseDSN(); dsn != "" {
		return dsn
	}
	return c.DSN()
}

// supabaseDSN arma el DSN directo de Supabase (db.<ref>.supabase.co) a partir de la URL del proyecto.
func (c DBConfig) supabaseDSN() string {
	if c.SupabaseURL == "" || c.ServiceKey == "" {
		return ""
	}
	u, err := url.Parse(c.SupabaseURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	ref := strings.Split(u.Hostname(), ".")[0]
	dsn := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword("postgres", c.ServiceKey),
		Host:     fmt.Sprintf("db.%s.supabase.co:5432", ref),
		Path:     "/postgres",
		RawQuery: "sslmode=require",
	}
	return dsn.String()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// RedisConfig configuración de la caché compartida. Vacía = caché en memoria.
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled indica si hay un Redis configurado.
func (c RedisConfig) Enabled() bool { return c.URL != "" || c.Host != "" }

// Addr devuelve host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig configuración de JWT (acceso y refresh).
type JWTConfig struct {
	Secret            string
	RefreshSecret     string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
	Audience          string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CORSConfig lista blanca de orígenes.
type CORSConfig struct {
	ClientURL   string
	Origins     []string
	Credentials bool
}

// AllowOrigins devuelve la lista separada por comas que espera el middleware de fiber.
func (c CORSConfig) AllowOrigins() string {
	origins := []string{"http://localhost:3000", "http://localhost:3001"}
	if c.ClientURL != "" {
		origins = append(origins, c.ClientURL)
	}
	origins = append(origins, c.Origins...)
	return strings.Join(origins, ",")
}

// RateLimitConfig cuotas ajustables por entorno.
type RateLimitConfig struct {
	Window  time.Duration
	Max     int
	AuthMax int
}

// AIConfig proveedor LLM (DeepSeek). Sin API key el adaptador queda deshabilitado.
type AIConfig struct {
	DeepSeekAPIKey string
	BaseURL        string
	Model          string
}

// MapboxConfig proveedor de geocodificación y rutas.
type MapboxConfig struct {
	AccessToken string
	BaseURL     string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: NODE_ENV, PORT, JWT_SECRET, SUPABASE_URL, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	env := getString(v, "NODE_ENV", getString(v, "APP_ENV", "development"))

	cfg := &Config{
		App: AppConfig{
			Env:      env,
			Name:     getString(v, "APP_NAME", "productivity-app"),
			Version:  getString(v, "APP_VERSION", "1.0.0"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
			LogDir:   getString(v, "LOG_DIR", ""),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			SupabaseURL: getString(v, "SUPABASE_URL", ""),
			ServiceKey:  getString(v, "SUPABASE_SERVICE_KEY", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "productivity_app"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			PoolMax:     getInt(v, "DB_POOL_MAX", 20),
			PoolMin:     getInt(v, "DB_POOL_MIN", 5),
			PoolIdle:    getDuration(v, "DB_POOL_IDLE", 10*time.Second),
		},
		Redis: RedisConfig{
			URL:      getString(v, "REDIS_URL", ""),
			Host:     getString(v, "REDIS_HOST", ""),
			Port:     getInt(v, "REDIS_PORT", 6379),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:            getString(v, "JWT_SECRET", DefaultJWTSecret),
			RefreshSecret:     getString(v, "JWT_REFRESH_SECRET", DefaultJWTRefreshSecret),
			Expiration:        getDuration(v, "JWT_EXPIRES_IN", 8*time.Hour),
			RefreshExpiration: getDuration(v, "JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
			Issuer:            getString(v, "JWT_ISSUER", "productivity-app"),
			Audience:          getString(v, "JWT_AUDIENCE", "productivity-app-users"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "PORT", 5000),
		},
		CORS: CORSConfig{
			ClientURL:   getString(v, "CLIENT_URL", ""),
			Origins:     splitList(getString(v, "CORS_ORIGINS", "")),
			Credentials: getString(v, "CORS_CREDENTIALS", "false") == "true",
		},
		RateLimit: RateLimitConfig{
			Window:  getWindow(v, "RATE_LIMIT_WINDOW", 15*time.Minute),
			Max:     getInt(v, "RATE_LIMIT_MAX", 1000),
			AuthMax: getInt(v, "RATE_LIMIT_AUTH_MAX", 10),
		},
		AI: AIConfig{
			DeepSeekAPIKey: getString(v, "DEEPSEEK_API_KEY", ""),
			BaseURL:        getString(v, "DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
			Model:          getString(v, "DEEPSEEK_MODEL", "deepseek-chat"),
		},
		Mapbox: MapboxConfig{
			AccessToken: getString(v, "MAPBOX_ACCESS_TOKEN", ""),
			BaseURL:     getString(v, "MAPBOX_BASE_URL", "https://api.mapbox.com"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rechaza configuraciones inseguras. En producción los secretos JWT deben estar definidos y no ser los de ejemplo.
func (c *Config) Validate() error {
	if !c.App.IsProduction() {
		return nil
	}
	var errs []error
	if c.JWT.Secret == "" || c.JWT.Secret == DefaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.JWT.RefreshSecret == "" || c.JWT.RefreshSecret == DefaultJWTRefreshSecret {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must be set in production"))
	}
	if c.JWT.Secret != "" && c.JWT.Secret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	return errors.Join(errs...)
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) && v.GetString(key) != "" {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

// getDuration acepta "15m", "8h", "7d" o milisegundos.
func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	return parseDuration(v.GetString(key), def, time.Millisecond)
}

// getWindow como getDuration, pero un entero sin unidad son minutos (RATE_LIMIT_WINDOW=15).
func getWindow(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	return parseDuration(v.GetString(key), def, time.Minute)
}

// parseDuration interpreta un entero sin sufijo en la unidad indicada.
func parseDuration(s string, def, unit time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * unit
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return def
		}
		return time.Duration(days) * 24 * time.Hour
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
