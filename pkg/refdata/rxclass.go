package refdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// RxClassClient talks to the NLM RxClass REST API.
type RxClassClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRxClass creates a client for the given base URL
// (e.g. https://rxnav.nlm.nih.gov/REST/rxclass).
func NewRxClass(baseURL string) *RxClassClient {
	return &RxClassClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// DrugClass is one classification of a drug.
type DrugClass struct {
	ClassID   string `json:"classId"`
	ClassName string `json:"className"`
	ClassType string `json:"classType"`
	Relation  string `json:"rela,omitempty"`
}

// ClassesByDrugName returns the classes a drug belongs to. relaSource
// filters by classification source (e.g. "ATC") and may be empty.
func (c *RxClassClient) ClassesByDrugName(ctx context.Context, name, relaSource string) ([]DrugClass, error) {
	var out struct {
		RxClassDrugInfoList struct {
			RxClassDrugInfo []struct {
				Rela                  string `json:"rela"`
				RxClassMinConceptItem struct {
					ClassID   string `json:"classId"`
					ClassName string `json:"className"`
					ClassType string `json:"classType"`
				} `json:"rxclassMinConceptItem"`
			} `json:"rxclassDrugInfo"`
		} `json:"rxclassDrugInfoList"`
	}

	u := fmt.Sprintf("%s/class/byDrugName.json?drugName=%s", c.baseURL, url.QueryEscape(name))
	if relaSource != "" {
		u += "&relaSource=" + url.QueryEscape(relaSource)
	}
	if err := getJSON(ctx, c.httpClient, "rxclass", u, nil, &out); err != nil {
		return nil, err
	}

	var classes []DrugClass
	for _, info := range out.RxClassDrugInfoList.RxClassDrugInfo {
		item := info.RxClassMinConceptItem
		classes = append(classes, DrugClass{
			ClassID:   item.ClassID,
			ClassName: item.ClassName,
			ClassType: item.ClassType,
			Relation:  info.Rela,
		})
	}
	return classes, nil
}
