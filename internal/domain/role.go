package domain

// Role rol global de usuario o rol dentro de una organización.
type Role string

const (
	RoleAdmin                Role = "admin"
	RoleManager              Role = "manager"
	RoleAgent                Role = "agent"
	RoleRepresentative       Role = "representative"
	RoleCustomer             Role = "customer"
	RoleWarehouseManager     Role = "warehouse_manager"
	RoleFinancialManager     Role = "financial_manager"
	RoleLogisticsCoordinator Role = "logistics_coordinator"
)

// Roles lista completa, en el orden en que se documentan.
var Roles = []Role{
	RoleAdmin, RoleManager, RoleAgent, RoleRepresentative, RoleCustomer,
	RoleWarehouseManager, RoleFinancialManager, RoleLogisticsCoordinator,
}

// ParseRole valida un string contra el enumerado.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Valid indica si el rol pertenece al enumerado.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Capability permiso puntual que consultan los guards HTTP y los casos de uso.
type Capability string

const (
	CapTasksManageAll   Capability = "tasks:manage_all"
	CapTasksDelete      Capability = "tasks:delete"
	CapOrdersDelete     Capability = "orders:delete"
	CapCustomersDelete  Capability = "customers:delete"
	CapAnalyticsView    Capability = "analytics:view"
	CapAISupport        Capability = "ai:support"
	CapAIInventory      Capability = "ai:inventory"
	CapAIInsights       Capability = "ai:insights"
	CapLogisticsRouting Capability = "logistics:routing"
	CapRateLimitExempt  Capability = "ratelimit:user_exempt"
)

var capabilities = map[Role][]Capability{
	RoleAdmin: {
		CapTasksManageAll, CapTasksDelete, CapOrdersDelete, CapCustomersDelete,
		CapAnalyticsView, CapAISupport, CapAIInventory, CapAIInsights,
		CapLogisticsRouting, CapRateLimitExempt,
	},
	RoleManager: {
		CapTasksManageAll, CapTasksDelete, CapOrdersDelete, CapCustomersDelete,
		CapAnalyticsView, CapAISupport, CapAIInventory, CapAIInsights,
		CapLogisticsRouting,
	},
	RoleAgent:                {CapAISupport},
	RoleRepresentative:       {},
	RoleCustomer:             {},
	RoleWarehouseManager:     {CapAIInventory},
	RoleFinancialManager:     {},
	RoleLogisticsCoordinator: {CapLogisticsRouting},
}

// Can indica si el rol tiene la capacidad.
func (r Role) Can(c Capability) bool {
	for _, have := range capabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}
