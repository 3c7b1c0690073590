package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/application/ports"
)

// LLMTimeout tope de cada llamada al proveedor de completions.
const LLMTimeout = 10 * time.Second

// AIFeatures funcionalidades que anuncia GET /api/ai/status.
var AIFeatures = []string{
	"task-enhancement",
	"ticket-response-generation",
	"order-pattern-analysis",
	"inventory-optimization",
	"performance-insights",
}

// AIUseCase orquesta las funciones asistidas por IA.
// Nunca devuelve error al cliente: con la IA deshabilitada o ante un fallo del
// proveedor, enhance devuelve la entrada y el resto nil.
type AIUseCase struct {
	llm ports.LLMService
	log zerolog.Logger
}

// NewAIUseCase construye el caso de uso. llm puede ser nil (IA deshabilitada).
func NewAIUseCase(llm ports.LLMService, log zerolog.Logger) *AIUseCase {
	return &AIUseCase{llm: llm, log: log}
}

func (uc *AIUseCase) enabled() bool {
	return uc.llm != nil && uc.llm.Enabled()
}

// Status estado del servicio y funcionalidades disponibles.
func (uc *AIUseCase) Status() dto.AIStatus {
	on := uc.enabled()
	return dto.AIStatus{AIServiceEnabled: on, DeepseekConnected: on, AvailableFeatures: AIFeatures}
}

// EnhanceTask mejora título y descripción de una tarea.
func (uc *AIUseCase) EnhanceTask(ctx context.Context, in dto.EnhanceTaskRequest) *dto.TaskEnhancement {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	fallback := &dto.TaskEnhancement{Title: title, Description: description}
	if !uc.enabled() {
		return fallback
	}

	// Timeout de 10 s: las llamadas a LLMs pueden demorar varios segundos.
	ctx, cancel := context.WithTimeout(ctx, LLMTimeout)
	defer cancel()

	out, err := uc.llm.EnhanceTask(ctx, title, description)
	if err != nil || out == nil {
		uc.warn(err, "enhance-task")
		return fallback
	}
	out.OriginalTitle = title
	out.OriginalDescription = description
	return out
}

// GenerateTicketResponse propone respuesta y pasos de resolución para un ticket.
func (uc *AIUseCase) GenerateTicketResponse(ctx context.Context, in dto.TicketResponseRequest) map[string]any {
	return uc.call(ctx, "generate-ticket-response", func(ctx context.Context) (map[string]any, error) {
		return uc.llm.GenerateTicketResponse(ctx, strings.TrimSpace(in.Subject), strings.TrimSpace(in.Description), in.CustomerHistory)
	})
}

// AnalyzeOrderPattern analiza el historial de pedidos de un cliente.
func (uc *AIUseCase) AnalyzeOrderPattern(ctx context.Context, in dto.OrderPatternRequest) map[string]any {
	return uc.call(ctx, "analyze-order-pattern", func(ctx context.Context) (map[string]any, error) {
		return uc.llm.AnalyzeOrderPattern(ctx, in.CustomerOrders, in.CustomerProfile)
	})
}

// OptimizeInventory recomienda reposición y promociones.
func (uc *AIUseCase) OptimizeInventory(ctx context.Context, in dto.InventoryOptimizationRequest) map[string]any {
	return uc.call(ctx, "optimize-inventory", func(ctx context.Context) (map[string]any, error) {
		return uc.llm.OptimizeInventory(ctx, in.InventoryData, in.SalesData)
	})
}

// PerformanceInsights genera recomendaciones a partir de métricas de usuario y equipo.
func (uc *AIUseCase) PerformanceInsights(ctx context.Context, in dto.PerformanceInsightsRequest) map[string]any {
	team := in.TeamMetrics
	if team == nil {
		team = map[string]any{}
	}
	return uc.call(ctx, "performance-insights", func(ctx context.Context) (map[string]any, error) {
		return uc.llm.PerformanceInsights(ctx, in.UserMetrics, team)
	})
}

func (uc *AIUseCase) call(ctx context.Context, feature string, fn func(context.Context) (map[string]any, error)) map[string]any {
	if !uc.enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, LLMTimeout)
	defer cancel()
	out, err := fn(ctx)
	if err != nil {
		uc.warn(err, feature)
		return nil
	}
	return out
}

func (uc *AIUseCase) warn(err error, feature string) {
	if err == nil {
		return
	}
	uc.log.Warn().Err(err).Str("feature", feature).Msg("IA no disponible, se usa respuesta por defecto")
}
