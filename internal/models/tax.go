package models

type TaxSearchRequest struct {
	Query string `json:"query" binding:"required"`
	// Limit is a pointer so an explicit 0 is rejected instead of defaulted.
	Limit *int `json:"limit" binding:"omitempty,min=1,max=10"`
}

type TaxSource struct {
	Article string  `json:"article"`
	Type    string  `json:"type"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type TaxSearchResponse struct {
	Query            string      `json:"query"`
	Answer           string      `json:"answer"`
	Sources          []TaxSource `json:"sources"`
	ProcessingTimeMS int64       `json:"processing_time_ms"`
}

type TaxHealth struct {
	Status               string `json:"status"` // ok|degraded
	RAGConnected         bool   `json:"rag_connected"`
	RAGBackend           string `json:"rag_backend"`
	LLMServiceConfigured bool   `json:"llm_service_configured"`
	LLMServiceURL        string `json:"llm_service_url"`
	CacheConnected       bool   `json:"cache_connected"`
}
