package vulnlib

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kvesta/vulncollect/pkg/component"
)

const searchPath = "/api/v1/vulnerabilities/search"

// HTTPClient queries a remote knowledge base service.
type HTTPClient struct {
	Cli     *http.Client
	BaseURL string
	Token   string
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		Cli: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				IdleConnTimeout: 60 * time.Second,
			},
		},
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
	}
}

func (c *HTTPClient) SearchByRelease(ctx context.Context, releaseID string, page Page) ([]component.Vulnerability, error) {
	return c.search(ctx, "releaseId", releaseID, page)
}

func (c *HTTPClient) SearchByComponent(ctx context.Context, componentID string, page Page) ([]component.Vulnerability, error) {
	return c.search(ctx, "componentId", componentID, page)
}

func (c *HTTPClient) search(ctx context.Context, field, id string, page Page) ([]component.Vulnerability, error) {
	op := "search " + strings.TrimSuffix(field, "Id")

	jsonPost := map[string]interface{}{
		field:           id,
		"firstRowIndex": page.FirstRowIndex,
		"lastRowIndex":  page.LastRowIndex,
		"sortAscending": page.SortAscending,
	}

	data, err := json.Marshal(jsonPost)
	if err != nil {
		return nil, serviceError(op, id, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+searchPath, bytes.NewBuffer(data))
	if err != nil {
		return nil, serviceError(op, id, err)
	}

	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	res, err := c.Cli.Do(req)
	if err != nil {
		return nil, serviceError(op, id, err)
	}

	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, serviceError(op, id, err)
	}

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, notFound(op, id)
	default:
		return nil, serviceError(op, id, fmt.Errorf("status %s: %s", res.Status, gjson.GetBytes(resBody, "message").String()))
	}

	if !gjson.ValidBytes(resBody) {
		return nil, serviceError(op, id, fmt.Errorf("malformed response body"))
	}

	return parseVulnerabilities(gjson.GetBytes(resBody, "vulnerabilities")), nil
}

func parseVulnerabilities(list gjson.Result) []component.Vulnerability {
	vulns := []component.Vulnerability{}

	list.ForEach(func(_, v gjson.Result) bool {
		vuln := component.Vulnerability{
			ID:          v.Get("id").String(),
			Name:        v.Get("name").String(),
			Severity:    v.Get("severity").String(),
			Score:       v.Get("score").Float(),
			Description: v.Get("description").String(),
			PublishDate: v.Get("published").String(),
			URL:         v.Get("url").String(),
			Source:      v.Get("source").String(),
		}

		if attrs := v.Get("attributes"); attrs.IsObject() {
			vuln.Attributes = map[string]string{}
			attrs.ForEach(func(k, val gjson.Result) bool {
				vuln.Attributes[k.String()] = val.String()
				return true
			})
		}

		vulns = append(vulns, vuln)
		return true
	})

	return vulns
}
