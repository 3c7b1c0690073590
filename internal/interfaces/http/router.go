package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/productivity-api/internal/application/analytics"
	"github.com/jhoicas/productivity-api/internal/application/auth"
	"github.com/jhoicas/productivity-api/internal/application/billing"
	"github.com/jhoicas/productivity-api/internal/application/usecase"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/infrastructure/realtime"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthSvc     *auth.Service
	TaskUC      *usecase.TaskUseCase
	OrderUC     *billing.OrderUseCase
	CustomerUC  *usecase.CustomerUseCase
	DashboardUC *appanalytics.DashboardUseCase
	AIUC        *usecase.AIUseCase
	MappingUC   *usecase.MappingUseCase
	Modules     *usecase.ModuleService
	Health      *HealthHandler
	Hub         *realtime.Hub
	Limiter     *RateLimiter
	Policies    Policies
}

// Router registra las rutas de la API. El 404 genérico se registra al final.
func Router(app *fiber.App, deps RouterDeps) {
	limit := deps.Limiter.Limit
	p := deps.Policies

	app.Get("/health", deps.Health.Check)

	if deps.Hub != nil {
		ws := NewWSHandler(deps.AuthSvc, deps.Hub)
		app.Get("/ws", ws.Upgrade, ws.Serve())
	}

	api := app.Group("/api", limit(p.API))
	api.Get("/health", deps.Health.Check)

	// Auth: registro y login públicos con límite estricto por IP
	authHandler := NewAuthHandler(deps.AuthSvc)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", limit(p.Auth), authHandler.Register)
	authGroup.Post("/login", limit(p.Auth), authHandler.Login)
	authGroup.Post("/refresh", limit(p.Auth), authHandler.Refresh)

	authenticate := Authenticate(deps.AuthSvc)
	authGroup.Get("/profile", authenticate, authHandler.Profile)
	authGroup.Put("/profile", authenticate, authHandler.UpdateProfile)
	authGroup.Post("/change-password", authenticate, limit(p.Strict), authHandler.ChangePassword)
	authGroup.Post("/logout", authenticate, authHandler.Logout)
	authGroup.Post("/verify-token", authenticate, authHandler.VerifyToken)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", authenticate, limit(p.User), limit(p.Organization), limit(p.Role))
	tenant := RequireOrganization()

	tasks := protected.Group("/tasks", tenant)
	taskHandler := NewTaskHandler(deps.TaskUC)
	tasks.Get("/", limit(p.Search), taskHandler.List)
	tasks.Post("/", taskHandler.Create)
	tasks.Get("/:id", taskHandler.GetByID)
	tasks.Put("/:id", taskHandler.Update)
	tasks.Delete("/:id", RequireCapability(domain.CapTasksDelete), taskHandler.Delete)

	orders := protected.Group("/orders", tenant)
	orderHandler := NewOrderHandler(deps.OrderUC)
	orders.Get("/", limit(p.Search), orderHandler.List)
	orders.Post("/", orderHandler.Create)
	orders.Get("/:id/slip", orderHandler.Slip)
	orders.Get("/:id", orderHandler.GetByID)
	orders.Put("/:id", orderHandler.Update)
	orders.Delete("/:id", RequireCapability(domain.CapOrdersDelete), orderHandler.Delete)

	customers := protected.Group("/customers", tenant)
	customerHandler := NewCustomerHandler(deps.CustomerUC)
	customers.Get("/", limit(p.Search), customerHandler.List)
	customers.Post("/", customerHandler.Create)
	customers.Get("/:id", customerHandler.GetByID)
	customers.Put("/:id", customerHandler.Update)
	customers.Delete("/:id", RequireCapability(domain.CapCustomersDelete), customerHandler.Delete)

	dashboard := protected.Group("/dashboard", tenant)
	dashboardHandler := NewDashboardHandler(deps.DashboardUC)
	dashboard.Get("/", dashboardHandler.GetSummary)
	dashboard.Get("/analytics", RequireCapability(domain.CapAnalyticsView), dashboardHandler.GetAnalytics)

	// Módulos pendientes
	moduleHandler := NewModuleHandler(deps.Modules)
	for _, name := range deps.Modules.Names() {
		protected.Get("/"+name, moduleHandler.Describe(name))
	}

	ai := protected.Group("/ai")
	aiHandler := NewAIHandler(deps.AIUC)
	ai.Post("/enhance-task", aiHandler.EnhanceTask)
	ai.Post("/generate-ticket-response", RequireCapability(domain.CapAISupport), aiHandler.GenerateTicketResponse)
	ai.Post("/analyze-order-pattern", RequireCapability(domain.CapAISupport), aiHandler.AnalyzeOrderPattern)
	ai.Post("/optimize-inventory", RequireCapability(domain.CapAIInventory), aiHandler.OptimizeInventory)
	ai.Post("/performance-insights", RequireCapability(domain.CapAIInsights), aiHandler.PerformanceInsights)
	ai.Get("/status", aiHandler.Status)

	mapping := protected.Group("/mapping")
	mappingHandler := NewMappingHandler(deps.MappingUC)
	routing := RequireCapability(domain.CapLogisticsRouting)
	mapping.Post("/geocode", mappingHandler.Geocode)
	mapping.Post("/reverse-geocode", mappingHandler.ReverseGeocode)
	mapping.Post("/route", mappingHandler.Route)
	mapping.Post("/optimize-delivery-route", routing, mappingHandler.OptimizeDeliveryRoute)
	mapping.Post("/delivery-zones", routing, mappingHandler.DeliveryZones)
	mapping.Post("/distance-matrix", routing, mappingHandler.DistanceMatrix)
	mapping.Post("/estimate-delivery-time", mappingHandler.EstimateDeliveryTime)
	mapping.Post("/validate-address", mappingHandler.ValidateAddress)
	mapping.Get("/status", mappingHandler.Status)

	app.Use(NotFound)
}
