package models

import (
	"encoding/json"
	"time"
)

// Artifact is the persisted result of one structured generation call.
// Document holds the validated JSON record; Markdown is the optional
// human-readable rendering of the same record.
type Artifact struct {
	Fingerprint string          `json:"fingerprint"`
	Domain      string          `json:"domain"`
	Subject     string          `json:"subject"`
	Model       string          `json:"model"`
	Document    json.RawMessage `json:"document"`
	Markdown    string          `json:"markdown,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CacheStats reports artifact cache performance metrics.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}
