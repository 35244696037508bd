// Package llm invokes an OpenAI-compatible chat completion provider and
// validates structured responses against declared record shapes.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/galen-ai/galen/pkg/config"
	"github.com/galen-ai/galen/pkg/models"
	"github.com/galen-ai/galen/pkg/router"
	"github.com/galen-ai/galen/pkg/schema"
)

// Client calls chat completion providers with fallback routing, bounded
// transient-failure retries, and bounded re-prompting on shape-invalid
// output.
type Client struct {
	router          *router.Router
	httpClient      *http.Client
	timeout         time.Duration
	maxAttempts     int
	maxShapeRetries int
	retryBase       time.Duration
}

// Result holds the outcome of a completion call.
type Result struct {
	Text     string
	Document map[string]any
	Model    string
	Provider string
	Usage    models.Usage
}

// New creates a Client from the given configuration.
func New(cfg *config.Config) *Client {
	gen := cfg.Generation
	maxAttempts := gen.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	timeout := gen.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		router:          router.New(cfg),
		httpClient:      &http.Client{Timeout: timeout},
		timeout:         timeout,
		maxAttempts:     maxAttempts,
		maxShapeRetries: gen.MaxShapeRetries,
		retryBase:       time.Second,
	}
}

// Complete sends a system/user prompt pair and returns the raw text
// completion.
func (c *Client) Complete(ctx context.Context, system, user, model string) (*Result, error) {
	return c.complete(ctx, system, user, model, nil)
}

// GenerateStructured sends a system/user prompt pair plus a record shape
// and returns the validated document. Shape-invalid responses are
// re-prompted with the validation problems appended, up to the
// configured bound, before the error is surfaced.
func (c *Client) GenerateStructured(ctx context.Context, system, user, model string, shape schema.Shape) (*Result, error) {
	system = system + "\n\nRespond with a single JSON object matching this JSON schema exactly:\n" + shape.Instruction()

	var total models.Usage
	var lastErr error
	prompt := user

	for attempt := 0; attempt <= c.maxShapeRetries; attempt++ {
		res, err := c.complete(ctx, system, prompt, model, &models.ResponseFormat{Type: "json_object"})
		if err != nil {
			return nil, err
		}
		total.PromptTokens += res.Usage.PromptTokens
		total.CompletionTokens += res.Usage.CompletionTokens
		total.TotalTokens += res.Usage.TotalTokens

		doc, err := decodeDocument(res.Text)
		if err == nil {
			err = shape.Validate(doc)
			if err == nil {
				res.Document = doc
				res.Usage = total
				return res, nil
			}
		}

		lastErr = err
		if attempt < c.maxShapeRetries {
			log.Printf("llm: %s response failed shape %s (attempt %d/%d): %v",
				model, shape.Name, attempt+1, c.maxShapeRetries+1, err)
			prompt = user + "\n\nYour previous response was not valid: " + err.Error() +
				"\nRespond again with only a JSON object matching the schema."
		}
	}

	return nil, &Error{Kind: KindInvalidShape, Err: lastErr}
}

// complete resolves the model's route chain and tries each route in
// order, retrying transient failures with exponential backoff.
func (c *Client) complete(ctx context.Context, system, user, model string, format *models.ResponseFormat) (*Result, error) {
	routes, err := c.router.Resolve(model)
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, Err: err}
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error
	for _, route := range routes {
		res, err := c.tryRoute(ctx, route, system, user, format)
		if err == nil {
			return res, nil
		}
		lastErr = err
		log.Printf("llm: provider %s failed: %v", route.Provider.Name, err)
	}
	return nil, lastErr
}

// tryRoute attempts a single provider, retrying rate limits and
// transient failures.
func (c *Client) tryRoute(ctx context.Context, route router.Route, system, user string, format *models.ResponseFormat) (*Result, error) {
	messages := []models.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	reqBody := models.ChatCompletionRequest{
		Model:          route.Model,
		Messages:       messages,
		ResponseFormat: format,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, Err: fmt.Errorf("marshal request: %w", err)}
	}

	var lastErr error
	for i := 0; i < c.maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, &Error{Kind: KindNetworkFailure, Err: ctx.Err()}
			case <-time.After(c.retryBase << uint(i-1)):
			}
		}

		res, err := c.doRequest(ctx, route, payload)
		if err == nil {
			return res, nil
		}
		lastErr = err

		switch KindOf(err) {
		case KindRateLimited, KindNetworkFailure:
			continue
		default:
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, route router.Route, payload []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(route.Provider.URL, "/")+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+route.Provider.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindRateLimited, Status: resp.StatusCode, Err: fmt.Errorf("rate limited")}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Kind: KindAuthFailure, Status: resp.StatusCode, Err: fmt.Errorf("authentication rejected")}
	case resp.StatusCode >= 500:
		return nil, &Error{Kind: KindNetworkFailure, Status: resp.StatusCode, Err: fmt.Errorf("upstream error: %s", truncate(body, 200))}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Kind: KindInvalidShape, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", truncate(body, 200))}
	}

	var completion models.ChatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, &Error{Kind: KindInvalidShape, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(completion.Choices) == 0 {
		return nil, &Error{Kind: KindInvalidShape, Status: resp.StatusCode, Err: fmt.Errorf("response has no choices")}
	}

	res := &Result{
		Text:     completion.Choices[0].Message.Content,
		Model:    completion.Model,
		Provider: route.Provider.Name,
	}
	if res.Model == "" {
		res.Model = route.Model
	}
	if completion.Usage != nil {
		res.Usage = *completion.Usage
	}
	return res, nil
}

// decodeDocument parses a model response as a JSON object, tolerating a
// markdown code fence around the payload.
func decodeDocument(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	return doc, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
