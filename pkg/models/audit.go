package models

import "time"

// AuditEntry represents a single audited generation call.
type AuditEntry struct {
	RequestID        string    `json:"request_id"`
	Domain           string    `json:"domain"`
	SubjectHash      string    `json:"subject_hash"`
	SubjectPrefix    string    `json:"subject_prefix"`
	Model            string    `json:"model"`
	Provider         string    `json:"provider"`
	CacheOutcome     string    `json:"cache_outcome"` // "hit", "miss", or "bypass"
	RequestBody      string    `json:"request_body,omitempty"`
	ResponseBody     string    `json:"response_body,omitempty"`
	StatusCode       int       `json:"status_code"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	LatencyMs        int64     `json:"latency_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// AuditConfig controls the audit logging subsystem.
type AuditConfig struct {
	Enabled       bool     `yaml:"enabled"`
	DBPath        string   `yaml:"db_path"`
	RetentionDays int      `yaml:"retention_days"`
	Include       []string `yaml:"include"` // "prompts", "responses"
	ExcludeModels []string `yaml:"exclude_models"`
	MaxBodySize   int      `yaml:"max_body_size"` // bytes
}

// AuditQueryOpts specifies filters for querying audit entries.
type AuditQueryOpts struct {
	Domain    string
	Model     string
	Since     time.Time
	RequestID string
	Limit     int
}

// AuditStat holds aggregate audit counts for a domain/day combination.
type AuditStat struct {
	Domain string
	Day    string
	Count  int
}
