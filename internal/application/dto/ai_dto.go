package dto

// EnhanceTaskRequest entrada de POST /api/ai/enhance-task.
type EnhanceTaskRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"omitempty,max=1000"`
}

// TaskEnhancement sugerencia del modelo. Si la IA no está disponible solo
// vienen Title y Description con los valores originales.
type TaskEnhancement struct {
	Title               string   `json:"title,omitempty"`
	Description         string   `json:"description,omitempty"`
	OriginalTitle       string   `json:"originalTitle,omitempty"`
	OriginalDescription string   `json:"originalDescription,omitempty"`
	EnhancedTitle       string   `json:"enhancedTitle,omitempty"`
	EnhancedDescription string   `json:"enhancedDescription,omitempty"`
	SuggestedPriority   string   `json:"suggestedPriority,omitempty"`
	EstimatedHours      *float64 `json:"estimatedHours,omitempty"`
}

// TicketHistoryEntry ticket previo del cliente.
type TicketHistoryEntry struct {
	Subject    string `json:"subject"`
	Resolution string `json:"resolution"`
}

// TicketResponseRequest entrada de POST /api/ai/generate-ticket-response.
type TicketResponseRequest struct {
	Subject         string               `json:"subject" validate:"required,min=1,max=200"`
	Description     string               `json:"description" validate:"required,min=1,max=2000"`
	CustomerHistory []TicketHistoryEntry `json:"customerHistory"`
}

// OrderPatternRequest entrada de POST /api/ai/analyze-order-pattern.
type OrderPatternRequest struct {
	CustomerOrders  []map[string]any `json:"customerOrders" validate:"required"`
	CustomerProfile map[string]any   `json:"customerProfile" validate:"required"`
}

// InventoryOptimizationRequest entrada de POST /api/ai/optimize-inventory.
type InventoryOptimizationRequest struct {
	InventoryData []map[string]any `json:"inventoryData" validate:"required"`
	SalesData     []map[string]any `json:"salesData" validate:"required"`
}

// PerformanceInsightsRequest entrada de POST /api/ai/performance-insights.
type PerformanceInsightsRequest struct {
	UserMetrics map[string]any `json:"userMetrics" validate:"required"`
	TeamMetrics map[string]any `json:"teamMetrics"`
}

// AIStatus salida de GET /api/ai/status.
type AIStatus struct {
	AIServiceEnabled  bool     `json:"aiServiceEnabled"`
	DeepseekConnected bool     `json:"deepseekConnected"`
	AvailableFeatures []string `json:"availableFeatures"`
}
