package usecase

import (
	"sort"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/domain"
)

type moduleEntry struct {
	title    string
	features []string
}

// ModuleService catálogo de los módulos de negocio que aún no tienen
// implementación. Es el único punto que conoce sus nombres y funcionalidades.
type ModuleService struct {
	modules map[string]moduleEntry
}

// NewModuleService construye el catálogo.
func NewModuleService() *ModuleService {
	return &ModuleService{modules: map[string]moduleEntry{
		"financial":        {"Financial", []string{"Billing Management", "Payment Processing", "Financial Reporting", "Tax Management"}},
		"logistics":        {"Logistics", []string{"Delivery Management", "Route Optimization", "Vehicle Tracking", "Driver Management"}},
		"warehouse":        {"Warehouse", []string{"Inventory Management", "Stock Tracking", "Warehouse Operations", "Quality Control"}},
		"customer-service": {"Customer Service", []string{"Contact Center", "Ticket Management", "Live Chat", "Knowledge Base"}},
		"representatives":  {"Representatives", []string{"Representative Profiles", "Performance Tracking", "Schedule Management", "Incentive System"}},
		"reports":          {"Reports", []string{"Performance Reports", "Financial Analytics", "Operational Metrics", "Custom Dashboards"}},
	}}
}

// Names devuelve las rutas de módulo registradas, ordenadas.
func (s *ModuleService) Names() []string {
	out := make([]string, 0, len(s.modules))
	for name := range s.modules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Describe devuelve el aviso "Coming soon" del módulo.
func (s *ModuleService) Describe(name string) (dto.ModuleInfo, error) {
	m, ok := s.modules[name]
	if !ok {
		return dto.ModuleInfo{}, domain.NewNotFoundError("Module not found")
	}
	features := make([]string, len(m.features))
	copy(features, m.features)
	return dto.ModuleInfo{Message: m.title + " module - Coming soon", Features: features}, nil
}
