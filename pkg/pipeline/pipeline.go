// Package pipeline runs the generate flow: fingerprint, cache lookup,
// budget check, structured generation, markdown rendering, cache write,
// usage and audit recording.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/galen-ai/galen/pkg/audit"
	"github.com/galen-ai/galen/pkg/budget"
	"github.com/galen-ai/galen/pkg/cache/sqlite"
	"github.com/galen-ai/galen/pkg/domain"
	"github.com/galen-ai/galen/pkg/llm"
	"github.com/galen-ai/galen/pkg/models"
	"github.com/galen-ai/galen/pkg/schema"
	"github.com/galen-ai/galen/pkg/tracker"
)

// DefaultParallel bounds batch concurrency when no explicit limit is set.
const DefaultParallel = 4

// Generator produces validated structured documents. *llm.Client
// implements it.
type Generator interface {
	GenerateStructured(ctx context.Context, system, user, model string, shape schema.Shape) (*llm.Result, error)
}

// Pipeline wires the generation flow together. Cache, Tracker, Budget,
// and Audit are optional; a nil value disables that stage.
type Pipeline struct {
	Registry *domain.Registry
	Client   Generator
	Cache    *sqlite.Cache
	Tracker  tracker.Tracker
	Budget   *budget.Enforcer
	Audit    *audit.Logger
	Model    string
}

// Request describes one generation.
type Request struct {
	Domain  string
	Subject string
	Model   string // overrides the pipeline default when set
	Force   bool   // regenerate even when a cached artifact exists
	NoCache bool   // skip cache read and write entirely
}

// Outcome is the result of running one request.
type Outcome struct {
	Artifact  models.Artifact
	CacheHit  bool
	RequestID string
	Usage     models.Usage
}

// Run executes one generation request.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	mod, ok := p.Registry.Lookup(req.Domain)
	if !ok {
		return nil, fmt.Errorf("unknown domain %q", req.Domain)
	}

	model := req.Model
	if model == "" {
		model = p.Model
	}

	fp := sqlite.Fingerprint(mod.Name, mod.Shape.Version, req.Subject, model)

	outcome := "miss"
	switch {
	case req.NoCache:
		outcome = "bypass"
	case p.Cache == nil:
		outcome = "bypass"
	case req.Force:
		outcome = "bypass"
	default:
		if a, ok := p.Cache.Get(fp); ok {
			requestID := p.record(ctx, req, a, "hit", nil, 0)
			return &Outcome{Artifact: a, CacheHit: true, RequestID: requestID}, nil
		}
	}

	if p.Budget != nil {
		if err := p.Budget.Check(ctx, mod.Name, model); err != nil {
			return nil, err
		}
	}

	user, err := mod.RenderUser(req.Subject)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := p.Client.GenerateStructured(ctx, mod.System, user, model, mod.Shape)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	doc, err := json.Marshal(res.Document)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	markdown, err := mod.RenderMarkdown(res.Document)
	if err != nil {
		log.Printf("pipeline: render markdown for %s: %v", mod.Name, err)
		markdown = ""
	}

	artifact := models.Artifact{
		Fingerprint: fp,
		Domain:      mod.Name,
		Subject:     req.Subject,
		Model:       res.Model,
		Document:    doc,
		Markdown:    markdown,
		CreatedAt:   time.Now().UTC(),
	}

	if p.Cache != nil && !req.NoCache {
		if err := p.Cache.Put(fp, artifact); err != nil {
			// Cache trouble must not lose a paid-for generation.
			log.Printf("pipeline: cache write failed, continuing uncached: %v", err)
		}
	}

	if p.Tracker != nil {
		rec := models.UsageRecord{
			Domain:           mod.Name,
			Model:            res.Model,
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
			CreatedAt:        time.Now().UTC(),
		}
		if err := p.Tracker.Record(ctx, rec); err != nil {
			log.Printf("pipeline: record usage: %v", err)
		}
	}

	requestID := p.record(ctx, req, artifact, outcome, res, latency)
	return &Outcome{Artifact: artifact, RequestID: requestID, Usage: res.Usage}, nil
}

// record writes the audit entry and returns the request ID.
func (p *Pipeline) record(ctx context.Context, req Request, a models.Artifact, outcome string, res *llm.Result, latency time.Duration) string {
	requestID := uuid.NewString()
	if p.Audit == nil {
		return requestID
	}

	hash, prefix := audit.HashSubject(req.Subject)
	entry := models.AuditEntry{
		RequestID:     requestID,
		Domain:        a.Domain,
		SubjectHash:   hash,
		SubjectPrefix: prefix,
		Model:         a.Model,
		CacheOutcome:  outcome,
		LatencyMs:     latency.Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}
	if res != nil {
		entry.Provider = res.Provider
		entry.RequestBody = req.Subject
		entry.ResponseBody = res.Text
		entry.StatusCode = 200
		entry.PromptTokens = res.Usage.PromptTokens
		entry.CompletionTokens = res.Usage.CompletionTokens
		entry.TotalTokens = res.Usage.TotalTokens
	}
	if err := p.Audit.Log(ctx, entry); err != nil {
		log.Printf("pipeline: audit log: %v", err)
	}
	return requestID
}

// BatchResult pairs one batch item with its outcome or error.
type BatchResult struct {
	Request Request
	Outcome *Outcome
	Err     error
}

// RunBatch runs requests concurrently with at most parallel in flight.
// Results are returned in input order; per-item failures land in the
// corresponding BatchResult rather than aborting the batch.
func (p *Pipeline) RunBatch(ctx context.Context, reqs []Request, parallel int) []BatchResult {
	if parallel <= 0 {
		parallel = DefaultParallel
	}

	results := make([]BatchResult, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			out, err := p.Run(ctx, req)
			results[i] = BatchResult{Request: req, Outcome: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// WriteFiles writes an artifact's document and markdown next to each
// other in dir as stem.json and stem.md. The markdown file is skipped
// when the artifact has none.
func WriteFiles(a models.Artifact, dir, stem string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var pretty map[string]any
	if err := json.Unmarshal(a.Document, &pretty); err != nil {
		return fmt.Errorf("decode artifact document: %w", err)
	}
	data, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact document: %w", err)
	}

	jsonPath := filepath.Join(dir, stem+".json")
	if err := os.WriteFile(jsonPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", jsonPath, err)
	}

	if a.Markdown == "" {
		return nil
	}
	mdPath := filepath.Join(dir, stem+".md")
	if err := os.WriteFile(mdPath, []byte(a.Markdown), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}
	return nil
}
