package refdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// RxNormClient talks to the NLM RxNorm REST API.
type RxNormClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRxNorm creates a client for the given base URL
// (e.g. https://rxnav.nlm.nih.gov/REST).
func NewRxNorm(baseURL string) *RxNormClient {
	return &RxNormClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Interaction is one drug-drug interaction pair from RxNorm.
type Interaction struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// FindRxcui resolves a drug name to its RxNorm concept identifier.
// Returns an http_error with status 404 when the name is unknown.
func (c *RxNormClient) FindRxcui(ctx context.Context, name string) (string, error) {
	var out struct {
		IDGroup struct {
			RxNormID []string `json:"rxnormId"`
		} `json:"idGroup"`
	}
	u := fmt.Sprintf("%s/rxcui.json?name=%s&search=2", c.baseURL, url.QueryEscape(name))
	if err := getJSON(ctx, c.httpClient, "rxnorm", u, nil, &out); err != nil {
		return "", err
	}
	if len(out.IDGroup.RxNormID) == 0 {
		return "", &Error{API: "rxnorm", Kind: KindHTTPError, Status: http.StatusNotFound,
			Err: fmt.Errorf("no rxcui for %q", name)}
	}
	return out.IDGroup.RxNormID[0], nil
}

// Interactions returns the interaction pairs recorded for an rxcui.
func (c *RxNormClient) Interactions(ctx context.Context, rxcui string) ([]Interaction, error) {
	var out struct {
		InteractionTypeGroup []struct {
			InteractionType []struct {
				InteractionPair []struct {
					Severity    string `json:"severity"`
					Description string `json:"description"`
				} `json:"interactionPair"`
			} `json:"interactionType"`
		} `json:"interactionTypeGroup"`
	}
	u := fmt.Sprintf("%s/interaction/interaction.json?rxcui=%s", c.baseURL, url.QueryEscape(rxcui))
	if err := getJSON(ctx, c.httpClient, "rxnorm", u, nil, &out); err != nil {
		return nil, err
	}

	var interactions []Interaction
	for _, g := range out.InteractionTypeGroup {
		for _, t := range g.InteractionType {
			for _, p := range t.InteractionPair {
				interactions = append(interactions, Interaction{
					Severity:    p.Severity,
					Description: p.Description,
				})
			}
		}
	}
	return interactions, nil
}
