package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	appanalytics "github.com/jhoicas/productivity-api/internal/application/analytics"
	"github.com/jhoicas/productivity-api/internal/application/auth"
	"github.com/jhoicas/productivity-api/internal/application/billing"
	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/application/usecase"
	infraai "github.com/jhoicas/productivity-api/internal/infrastructure/ai"
	"github.com/jhoicas/productivity-api/internal/infrastructure/cache"
	"github.com/jhoicas/productivity-api/internal/infrastructure/mapbox"
	infrapdf "github.com/jhoicas/productivity-api/internal/infrastructure/pdf"
	"github.com/jhoicas/productivity-api/internal/infrastructure/postgres"
	"github.com/jhoicas/productivity-api/internal/infrastructure/realtime"
	httpRouter "github.com/jhoicas/productivity-api/internal/interfaces/http"
	"github.com/jhoicas/productivity-api/pkg/config"
	"github.com/jhoicas/productivity-api/pkg/jwt"
	"github.com/jhoicas/productivity-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		Dir:     cfg.App.LogDir,
	})
	defer func() { _ = log.Close() }()
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	// Caché: Redis si está configurado; si no responde se sigue con memoria del proceso.
	var (
		appCache ports.Cache = cache.NewMemory()
		hubOpts  []realtime.Option
	)
	if cfg.Redis.Enabled() {
		rc, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis no disponible, se usa caché en memoria")
		} else {
			appCache = rc
			hubOpts = append(hubOpts, realtime.WithBus(realtime.NewRedisBus(rc.Client())))
			log.Info().Msg("Redis conectado")
		}
	}
	defer func() { _ = appCache.Close() }()

	hubOpts = append(hubOpts, realtime.WithRoomAuthorizer(realtime.TenantRooms(store)))
	hub := realtime.NewHub(uuid.NewString(), appCache, log.Component("realtime"), hubOpts...)
	hub.Start(ctx)

	// Proveedores externos: sin credenciales o sin conexión quedan deshabilitados.
	httpClient := &http.Client{Timeout: 30 * time.Second}
	deepseek := infraai.NewDeepSeekService(cfg.AI.DeepSeekAPIKey, cfg.AI.BaseURL, cfg.AI.Model, httpClient, log.Component("deepseek"))
	_ = deepseek.Init(ctx)
	maps := mapbox.NewService(cfg.Mapbox.AccessToken, cfg.Mapbox.BaseURL, httpClient, log.Component("mapbox"))
	_ = maps.Init(ctx)

	tokens := jwt.NewManager(jwt.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.Expiration,
		RefreshTTL:    cfg.JWT.RefreshExpiration,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
	})
	authSvc := auth.NewService(store, appCache, tokens, log.Component("auth"))

	taskUC := usecase.NewTaskUseCase(store, hub, log.Component("tasks"))
	customerUC := usecase.NewCustomerUseCase(store, hub, log.Component("customers"))
	orderUC := billing.NewOrderUseCase(store, hub, infrapdf.NewOrderSlipGenerator(), log.Component("orders"))
	dashboardUC := appanalytics.NewDashboardUseCase(store, log.Component("dashboard"))
	aiUC := usecase.NewAIUseCase(deepseek, log.Component("ai"))
	mappingUC := usecase.NewMappingUseCase(maps, log.Component("mapping"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    10 * 1024 * 1024,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: httpRouter.ErrorHandler(log.Component("http"), cfg.App.IsDevelopment()),
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.App.IsDevelopment()}))
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins(),
		AllowCredentials: cfg.CORS.Credentials,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + httpRouter.HeaderOrganization,
	}))
	app.Use(compress.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Productivity API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthSvc:     authSvc,
		TaskUC:      taskUC,
		OrderUC:     orderUC,
		CustomerUC:  customerUC,
		DashboardUC: dashboardUC,
		AIUC:        aiUC,
		MappingUC:   mappingUC,
		Modules:     usecase.NewModuleService(),
		Health:      httpRouter.NewHealthHandler(store, appCache, cfg.App.Env, cfg.App.Version),
		Hub:         hub,
		Limiter:     httpRouter.NewRateLimiter(appCache, log.Component("rate_limit")),
		Policies:    httpRouter.DefaultPolicies(cfg.RateLimit),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	hub.Stop()
	stop()

	log.Info().Msg("aplicación detenida")
}
