package refdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/galen-ai/galen/pkg/config"
)

// ICDClient talks to the WHO ICD-11 API. Authentication uses the OAuth2
// client credentials flow; the token is fetched on first use and held
// until it expires.
type ICDClient struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewICD creates a client from the ICD section of the config.
func NewICD(cfg config.ICDConfig) *ICDClient {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{"icdapi_access"},
	}
	client := cc.Client(context.Background())
	client.Timeout = defaultTimeout

	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	return &ICDClient{
		baseURL:    cfg.URL,
		language:   lang,
		httpClient: client,
	}
}

// ICDEntity is one entity from the ICD-11 foundation.
type ICDEntity struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score,omitempty"`
}

// SearchEntities searches the ICD-11 foundation for entities matching q.
func (c *ICDClient) SearchEntities(ctx context.Context, q string) ([]ICDEntity, error) {
	var out struct {
		DestinationEntities []struct {
			ID    string  `json:"id"`
			Title string  `json:"title"`
			Score float64 `json:"score"`
		} `json:"destinationEntities"`
	}

	u := fmt.Sprintf("%s/entity/search?q=%s", c.baseURL, url.QueryEscape(q))
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}

	var entities []ICDEntity
	for _, e := range out.DestinationEntities {
		entities = append(entities, ICDEntity{ID: e.ID, Title: e.Title, Score: e.Score})
	}
	return entities, nil
}

// Entity fetches one foundation entity by numeric ID.
func (c *ICDClient) Entity(ctx context.Context, id string) (*ICDEntity, error) {
	var out struct {
		ID    string `json:"@id"`
		Title struct {
			Value string `json:"@value"`
		} `json:"title"`
	}

	u := fmt.Sprintf("%s/entity/%s", c.baseURL, url.PathEscape(id))
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	return &ICDEntity{ID: out.ID, Title: out.Title.Value}, nil
}

func (c *ICDClient) get(ctx context.Context, u string, out any) error {
	headers := map[string]string{
		"API-Version":     "v2",
		"Accept-Language": c.language,
	}
	err := getJSON(ctx, c.httpClient, "icd", u, headers, out)
	if err == nil {
		return nil
	}
	// A bad client secret surfaces as a token retrieval error inside
	// the oauth2 transport, not as a 401 from the API itself.
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return &Error{API: "icd", Kind: KindAuthFailed, Status: rerr.Response.StatusCode, Err: rerr}
	}
	return err
}
