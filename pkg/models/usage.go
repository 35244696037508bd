package models

import "time"

// Usage represents token usage from an LLM response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UsageRecord tracks token usage for one generation call.
type UsageRecord struct {
	ID               int64     `json:"id"`
	Domain           string    `json:"domain"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageSummary aggregates usage by domain and model.
type UsageSummary struct {
	Domain          string `json:"domain"`
	Model           string `json:"model"`
	RequestCount    int    `json:"request_count"`
	TotalPrompt     int    `json:"total_prompt"`
	TotalCompletion int    `json:"total_completion"`
	TotalTokens     int    `json:"total_tokens"`
}

// ModelPricing defines per-1K token costs for a model.
type ModelPricing struct {
	Model          string  `json:"model" yaml:"model"`
	PromptCost     float64 `json:"prompt_cost_per_1k" yaml:"prompt_cost_per_1k"`
	CompletionCost float64 `json:"completion_cost_per_1k" yaml:"completion_cost_per_1k"`
}

// CostReport is an aggregated cost row grouped by domain and model.
type CostReport struct {
	Domain           string  `json:"domain"`
	Model            string  `json:"model"`
	RequestCount     int     `json:"request_count"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	EstimatedCost    float64 `json:"estimated_cost"`
}
