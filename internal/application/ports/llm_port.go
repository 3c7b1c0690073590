package ports

import (
	"context"

	"github.com/jhoicas/productivity-api/internal/application/dto"
)

// LLMService puerto de salida hacia el proveedor de completions (DeepSeek u otro).
// Cada llamada debe llevar un contexto con timeout; los errores se devuelven
// y el caso de uso decide el fallback, nunca se propagan al cliente HTTP.
type LLMService interface {
	// Enabled indica si el adaptador tiene credenciales y pasó la verificación inicial.
	Enabled() bool
	EnhanceTask(ctx context.Context, title, description string) (*dto.TaskEnhancement, error)
	GenerateTicketResponse(ctx context.Context, subject, description string, history []dto.TicketHistoryEntry) (map[string]any, error)
	AnalyzeOrderPattern(ctx context.Context, orders []map[string]any, profile map[string]any) (map[string]any, error)
	OptimizeInventory(ctx context.Context, inventory, sales []map[string]any) (map[string]any, error)
	PerformanceInsights(ctx context.Context, userMetrics, teamMetrics map[string]any) (map[string]any, error)
}
