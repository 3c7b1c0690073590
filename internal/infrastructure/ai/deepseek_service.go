package ai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/infrastructure/breaker"
)

// Verificar en tiempo de compilación que DeepSeekService implementa LLMService.
var _ ports.LLMService = (*DeepSeekService)(nil)

const (
	defaultBaseURL = "https://api.deepseek.com/v1"
	defaultModel   = "deepseek-chat"

	enhanceSystemPrompt     = "You are a productivity expert helping to improve task descriptions for better clarity and actionability."
	ticketSystemPrompt      = "You are a professional customer service expert providing helpful, empathetic responses to customer inquiries."
	orderSystemPrompt       = "You are a business analyst expert in customer behavior analysis and sales optimization."
	inventorySystemPrompt   = "You are an inventory management expert specializing in supply chain optimization and demand forecasting."
	performanceSystemPrompt = "You are a performance management expert providing actionable insights for productivity improvement."
)

// DeepSeekService adaptador de LLMService sobre la API chat/completions de DeepSeek
// (compatible con OpenAI). Queda deshabilitado hasta que Init verifique la conexión.
type DeepSeekService struct {
	apiKey  string
	baseURL string
	model   string
	client  *breaker.Client
	log     zerolog.Logger
	ready   atomic.Bool
}

// NewDeepSeekService construye el adaptador. baseURL y model vacíos toman los valores por defecto.
func NewDeepSeekService(apiKey, baseURL, model string, client *http.Client, log zerolog.Logger) *DeepSeekService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &DeepSeekService{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  breaker.New("deepseek", client, breaker.Settings{}, log),
		log:     log,
	}
}

// Init verifica credenciales con GET /models. Un fallo deja la IA deshabilitada sin abortar el arranque.
func (s *DeepSeekService) Init(ctx context.Context) error {
	if s.apiKey == "" {
		s.log.Warn().Msg("DEEPSEEK_API_KEY no configurado, funciones de IA deshabilitadas")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, breaker.DefaultTimeout)
	defer cancel()

	req, err := s.newRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return err
	}
	if _, err := s.client.Do(req); err != nil {
		s.log.Warn().Err(err).Msg("no se pudo conectar con DeepSeek, funciones de IA deshabilitadas")
		return fmt.Errorf("AI: verificar conexión: %w", err)
	}
	s.ready.Store(true)
	s.log.Info().Str("model", s.model).Msg("DeepSeek conectado")
	return nil
}

// Enabled implementa ports.LLMService.
func (s *DeepSeekService) Enabled() bool { return s.ready.Load() }

// ── Protocolo chat/completions ────────────────────────────────────────────────

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// jsonBlockRe captura desde el primer '{' hasta el último '}'.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

func (s *DeepSeekService) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("AI: crear HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// complete envía el prompt y decodifica en out el objeto JSON de la respuesta del modelo.
func (s *DeepSeekService) complete(ctx context.Context, system, prompt string, maxTokens int, temperature float64, out any) error {
	if !s.Enabled() {
		return fmt.Errorf("AI: servicio no inicializado")
	}
	body, err := json.Marshal(chatRequest{
		Model:       s.model,
		Messages:    []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return fmt.Errorf("AI: serializar request: %w", err)
	}
	req, err := s.newRequest(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		return err
	}
	raw, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("AI: timeout o cancelación: %w", ctx.Err())
		}
		return fmt.Errorf("AI: llamada fallida: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("AI: deserializar respuesta: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("AI: el modelo devolvió respuesta vacía")
	}
	text := resp.Choices[0].Message.Content
	clean := extractJSON(text)
	if clean == "" {
		return fmt.Errorf("AI: no se encontró JSON en la respuesta del modelo (respuesta: %s)", text)
	}
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("AI: parsear JSON del modelo: %w", err)
	}
	return nil
}

// ── Implementación del puerto ─────────────────────────────────────────────────

type enhancementPayload struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Priority       string `json:"priority"`
	EstimatedHours any    `json:"estimatedHours"`
}

// EnhanceTask implementa ports.LLMService.
func (s *DeepSeekService) EnhanceTask(ctx context.Context, title, description string) (*dto.TaskEnhancement, error) {
	prompt := fmt.Sprintf(`Enhance this task description to be more clear and actionable:
Title: %s
Description: %s

Please provide:
1. An improved, clear title
2. A detailed, actionable description
3. Suggested priority level
4. Estimated time to complete

Format as JSON with keys: title, description, priority, estimatedHours`, title, description)

	var p enhancementPayload
	if err := s.complete(ctx, enhanceSystemPrompt, prompt, 500, 0.3, &p); err != nil {
		return nil, err
	}
	return &dto.TaskEnhancement{
		OriginalTitle:       title,
		OriginalDescription: description,
		EnhancedTitle:       p.Title,
		EnhancedDescription: p.Description,
		SuggestedPriority:   p.Priority,
		EstimatedHours:      hours(p.EstimatedHours),
	}, nil
}

// GenerateTicketResponse implementa ports.LLMService. Solo se envían los tres tickets más recientes.
func (s *DeepSeekService) GenerateTicketResponse(ctx context.Context, subject, description string, history []dto.TicketHistoryEntry) (map[string]any, error) {
	lines := make([]string, 0, 3)
	for i, h := range history {
		if i == 3 {
			break
		}
		res := h.Resolution
		if res == "" {
			res = "Unresolved"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", h.Subject, res))
	}
	prompt := fmt.Sprintf(`Generate a professional customer service response for this support ticket:

Subject: %s
Description: %s
Customer History: %s

Please provide:
1. A professional, empathetic response
2. Suggested resolution steps
3. Estimated resolution time
4. Priority level recommendation

Format as JSON with keys: response, resolutionSteps, estimatedTime, priority`, subject, description, strings.Join(lines, "\n"))

	var out map[string]any
	if err := s.complete(ctx, ticketSystemPrompt, prompt, 600, 0.4, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalyzeOrderPattern implementa ports.LLMService. Resume los diez primeros pedidos.
func (s *DeepSeekService) AnalyzeOrderPattern(ctx context.Context, orders []map[string]any, profile map[string]any) (map[string]any, error) {
	summary := make([]map[string]any, 0, 10)
	for i, o := range orders {
		if i == 10 {
			break
		}
		items := 0
		if list, ok := o["items"].([]any); ok {
			items = len(list)
		}
		summary = append(summary, map[string]any{
			"date":   o["created_at"],
			"total":  o["total_amount"],
			"items":  items,
			"status": o["order_status"],
		})
	}
	prompt := fmt.Sprintf(`Analyze this customer's order pattern and provide insights:

Customer Profile:
- Type: %v
- Tier: %v
- Total Orders: %d

Recent Orders: %s

Please provide:
1. Order pattern analysis
2. Recommended products or services
3. Optimal contact timing
4. Upselling opportunities
5. Risk assessment (payment delays, cancellations)

Format as JSON with keys: analysis, recommendations, contactTiming, upsellOpportunities, riskAssessment`,
		profile["customer_type"], profile["tier"], len(orders), indent(summary))

	var out map[string]any
	if err := s.complete(ctx, orderSystemPrompt, prompt, 800, 0.3, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OptimizeInventory implementa ports.LLMService. Envía hasta 20 filas de inventario y 10 de ventas.
func (s *DeepSeekService) OptimizeInventory(ctx context.Context, inventory, sales []map[string]any) (map[string]any, error) {
	prompt := fmt.Sprintf(`Analyze inventory and sales data to provide optimization recommendations:

Current Inventory: %s
Recent Sales: %s

Please provide:
1. Overstocked items that should be promoted
2. Understocked items that need reordering
3. Seasonal trends and recommendations
4. Optimal reorder points and quantities
5. Cost optimization opportunities

Format as JSON with keys: overstocked, understocked, seasonalTrends, reorderRecommendations, costOptimization`,
		indent(head(inventory, 20)), indent(head(sales, 10)))

	var out map[string]any
	if err := s.complete(ctx, inventorySystemPrompt, prompt, 1000, 0.2, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PerformanceInsights implementa ports.LLMService.
func (s *DeepSeekService) PerformanceInsights(ctx context.Context, userMetrics, teamMetrics map[string]any) (map[string]any, error) {
	prompt := fmt.Sprintf(`Analyze performance metrics and provide actionable insights:

User Metrics: %s
Team Metrics: %s

Please provide:
1. Performance strengths and areas for improvement
2. Productivity recommendations
3. Training suggestions
4. Goal setting recommendations
5. Team collaboration insights

Format as JSON with keys: strengths, improvements, recommendations, training, collaboration`,
		indent(userMetrics), indent(teamMetrics))

	var out map[string]any
	if err := s.complete(ctx, performanceSystemPrompt, prompt, 700, 0.3, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func head(rows []map[string]any, n int) []map[string]any {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

func indent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}

// hours acepta estimatedHours como número o como texto ("3", "2.5 hours").
func hours(v any) *float64 {
	switch h := v.(type) {
	case float64:
		return &h
	case string:
		fields := strings.Fields(h)
		if len(fields) == 0 {
			return nil
		}
		if f, err := strconv.ParseFloat(fields[0], 64); err == nil {
			return &f
		}
	}
	return nil
}

// extractJSON extrae el primer objeto JSON de un texto libre, con o sin bloque markdown.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx != -1 {
		after := text[idx+3:]
		if nl := strings.Index(after, "\n"); nl != -1 {
			after = after[nl+1:]
		}
		if end := strings.LastIndex(after, "```"); end != -1 {
			after = after[:end]
		}
		text = strings.TrimSpace(after)
	}
	if strings.HasPrefix(text, "{") {
		return text
	}
	return strings.TrimSpace(jsonBlockRe.FindString(text))
}
