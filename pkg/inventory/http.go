package inventory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kvesta/vulncollect/pkg/component"
)

// HTTPBackend reads BOMs from a remote inventory service.
type HTTPBackend struct {
	Cli     *http.Client
	BaseURL string
	Token   string
}

func NewHTTPBackend(baseURL, token string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		Cli:     &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
	}
}

func (b *HTTPBackend) get(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	u := b.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Accept", "application/json")
	if b.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.Token)
	}

	res, err := b.Cli.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}

	return res.StatusCode, body, nil
}

func (b *HTTPBackend) BOMEntries(ctx context.Context, project string) ([]*Entry, error) {
	status, body, err := b.get(ctx, "/api/v1/projects/"+url.PathEscape(project)+"/bom", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInventoryFailure, err)
	}

	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: project %q does not exist", ErrInventoryFailure, project)
	case status != http.StatusOK:
		return nil, fmt.Errorf("%w: bom request for %q returned status %d", ErrInventoryFailure, project, status)
	case !gjson.ValidBytes(body):
		return nil, fmt.Errorf("%w: malformed bom response for %q", ErrInventoryFailure, project)
	}

	entries := []*Entry{}
	gjson.GetBytes(body, "components").ForEach(func(i, c gjson.Result) bool {
		if c.Type == gjson.Null {
			entries = append(entries, nil)
			return true
		}

		key := component.Key{
			ComponentID: c.Get("componentId").String(),
			ReleaseID:   c.Get("releaseId").String(),
		}
		if !key.Valid() {
			entries = append(entries, nil)
			return true
		}

		entries = append(entries, &Entry{Key: key, Ref: i.String()})
		return true
	})

	return entries, nil
}

func (b *HTTPBackend) ResolveDetail(ctx context.Context, entry Entry) (component.RawComponent, error) {
	key := entry.Key
	query := url.Values{}
	if key.ComponentID != "" {
		query.Set("componentId", key.ComponentID)
	}
	if key.ReleaseID != "" {
		query.Set("releaseId", key.ReleaseID)
	}

	status, body, err := b.get(ctx, "/api/v1/components", query)
	if err != nil {
		return component.RawComponent{}, detailMiss(key, err.Error())
	}

	if status != http.StatusOK {
		return component.RawComponent{}, detailMiss(key, fmt.Sprintf("status %d", status))
	}

	if !gjson.ValidBytes(body) {
		return component.RawComponent{}, detailMiss(key, "malformed component response")
	}

	detail := gjson.ParseBytes(body)
	raw := component.RawComponent{
		Name:     detail.Get("name").String(),
		HomePage: detail.Get("homePage").String(),
		Type:     component.ParseType(detail.Get("type").String()),
		Key:      key,
	}

	if v := detail.Get("version"); v.Exists() && v.Type != gjson.Null {
		s := v.String()
		raw.Version = &s
	}

	return raw, nil
}
