package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/productivity-api/internal/application/dto"
)

// stubLLM implementación en memoria de ports.LLMService.
type stubLLM struct {
	enabled  bool
	err      error
	deadline time.Time
	history  []dto.TicketHistoryEntry
}

func (s *stubLLM) Enabled() bool { return s.enabled }

func (s *stubLLM) EnhanceTask(ctx context.Context, title, description string) (*dto.TaskEnhancement, error) {
	s.deadline, _ = ctx.Deadline()
	if s.err != nil {
		return nil, s.err
	}
	hours := 2.5
	return &dto.TaskEnhancement{EnhancedTitle: "Mejor: " + title, SuggestedPriority: "high", EstimatedHours: &hours}, nil
}

func (s *stubLLM) GenerateTicketResponse(_ context.Context, _, _ string, history []dto.TicketHistoryEntry) (map[string]any, error) {
	s.history = history
	if s.err != nil {
		return nil, s.err
	}
	return map[string]any{"response": "Lamentamos el inconveniente"}, nil
}

func (s *stubLLM) AnalyzeOrderPattern(context.Context, []map[string]any, map[string]any) (map[string]any, error) {
	return map[string]any{"analysis": "ok"}, s.err
}

func (s *stubLLM) OptimizeInventory(context.Context, []map[string]any, []map[string]any) (map[string]any, error) {
	return map[string]any{"overstocked": []any{}}, s.err
}

func (s *stubLLM) PerformanceInsights(_ context.Context, _, team map[string]any) (map[string]any, error) {
	if team == nil {
		return nil, errors.New("team nil")
	}
	return map[string]any{"strengths": []any{"constancia"}}, s.err
}

func TestAIUseCase_DisabledFallbacks(t *testing.T) {
	for name, uc := range map[string]*AIUseCase{
		"sin adaptador":  NewAIUseCase(nil, zerolog.Nop()),
		"deshabilitado": NewAIUseCase(&stubLLM{enabled: false}, zerolog.Nop()),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			got := uc.EnhanceTask(ctx, dto.EnhanceTaskRequest{Title: " Llamar ", Description: "al cliente"})
			assert.Equal(t, &dto.TaskEnhancement{Title: "Llamar", Description: "al cliente"}, got)
			assert.Nil(t, uc.GenerateTicketResponse(ctx, dto.TicketResponseRequest{Subject: "a", Description: "b"}))
			assert.Nil(t, uc.AnalyzeOrderPattern(ctx, dto.OrderPatternRequest{}))
			assert.Nil(t, uc.OptimizeInventory(ctx, dto.InventoryOptimizationRequest{}))
			assert.Nil(t, uc.PerformanceInsights(ctx, dto.PerformanceInsightsRequest{}))

			st := uc.Status()
			assert.False(t, st.AIServiceEnabled)
			assert.Len(t, st.AvailableFeatures, 5)
		})
	}
}

func TestAIUseCase_ProviderErrorFallsBack(t *testing.T) {
	uc := NewAIUseCase(&stubLLM{enabled: true, err: errors.New("503")}, zerolog.Nop())
	ctx := context.Background()

	got := uc.EnhanceTask(ctx, dto.EnhanceTaskRequest{Title: "x"})
	assert.Equal(t, "x", got.Title)
	assert.Empty(t, got.EnhancedTitle)
	assert.Nil(t, uc.GenerateTicketResponse(ctx, dto.TicketResponseRequest{Subject: "a", Description: "b"}))
}

func TestAIUseCase_Enabled(t *testing.T) {
	llm := &stubLLM{enabled: true}
	uc := NewAIUseCase(llm, zerolog.Nop())
	ctx := context.Background()

	start := time.Now()
	got := uc.EnhanceTask(ctx, dto.EnhanceTaskRequest{Title: "Llamar", Description: "al cliente"})
	require.NotNil(t, got)
	assert.Equal(t, "Mejor: Llamar", got.EnhancedTitle)
	assert.Equal(t, "Llamar", got.OriginalTitle)
	assert.Equal(t, "al cliente", got.OriginalDescription)
	assert.WithinDuration(t, start.Add(LLMTimeout), llm.deadline, time.Second, "cada llamada lleva timeout")

	history := []dto.TicketHistoryEntry{{Subject: "envío tarde", Resolution: "reembolso"}}
	res := uc.GenerateTicketResponse(ctx, dto.TicketResponseRequest{Subject: "a", Description: "b", CustomerHistory: history})
	assert.Equal(t, "Lamentamos el inconveniente", res["response"])
	assert.Equal(t, history, llm.history)

	assert.NotNil(t, uc.PerformanceInsights(ctx, dto.PerformanceInsightsRequest{UserMetrics: map[string]any{"done": 3}}),
		"teamMetrics ausente se envía como objeto vacío")
	assert.True(t, uc.Status().DeepseekConnected)
}
