package model

import "time"

// LLMRequest is one recorded call to the model provider.
type LLMRequest struct {
	ID           int64     `json:"id"`
	Purpose      string    `json:"purpose"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	LatencyMs    int64     `json:"latency_ms"`
	Success      bool      `json:"success"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Error        string    `json:"error,omitempty"`
	RequestBody  string    `json:"request_body"`
	ResponseBody string    `json:"response_body"`
	CreatedAt    time.Time `json:"created_at"`
}

// RequestExport is the top-level JSON structure for the request log export.
type RequestExport struct {
	ExportedAt time.Time    `json:"exported_at"`
	Count      int          `json:"count"`
	Requests   []LLMRequest `json:"requests"`
}

// GenerationInfo describes the currently stored question set.
type GenerationInfo struct {
	GeneratedAt time.Time
	Difficulty  Difficulty
	Sources     []string
	MCQCount    int
	ShortCount  int
}
