// Package refdata holds small clients for the public reference APIs:
// RxNorm, RxClass, and the WHO ICD-11 API. Clients do not retry; the
// caller decides whether a failure is worth another attempt.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrorKind classifies a reference API failure.
type ErrorKind string

const (
	KindAuthFailed     ErrorKind = "auth_failed"
	KindHTTPError      ErrorKind = "http_error"
	KindTransportError ErrorKind = "transport_error"
)

// Error is a typed reference API failure.
type Error struct {
	API    string
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.API, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.API, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

const defaultTimeout = 30 * time.Second

// getJSON issues a GET and decodes the JSON response body into out,
// classifying failures into the shared taxonomy.
func getJSON(ctx context.Context, client *http.Client, api, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{API: api, Kind: KindTransportError, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &Error{API: api, Kind: KindTransportError, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{API: api, Kind: KindTransportError, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &Error{API: api, Kind: KindAuthFailed, Status: resp.StatusCode, Err: fmt.Errorf("request rejected")}
	case resp.StatusCode != http.StatusOK:
		return &Error{API: api, Kind: KindHTTPError, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{API: api, Kind: KindHTTPError, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
