package vulnlib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kvesta/vulncollect/config"
)

// FeedStats counts what an import stored.
type FeedStats struct {
	Releases        int
	Vulnerabilities int
	Ranges          int
}

// Fetch reads a feed from a local file or an http(s) url. Gzip compressed
// feeds are inflated.
func Fetch(ctx context.Context, cli *http.Client, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, err
		}
		return gunzip(data)
	}

	if cli == nil {
		cli = &http.Client{
			Transport: &http.Transport{
				IdleConnTimeout:    60 * time.Second,
				DisableCompression: true,
			},
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}

	res, err := cli.Do(req)
	if err != nil {
		log.Printf("failed to request url: %s", location)
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned status: %s", location, res.Status)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	return gunzip(data)
}

// Import stores every release and vulnerability of a JSON feed.
func (cli *DBClient) Import(ctx context.Context, data []byte) (*FeedStats, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("feed is not valid json")
	}

	feed := gjson.ParseBytes(data)
	stats := &FeedStats{}

	var err error
	feed.Get("releases").ForEach(func(_, rel gjson.Result) bool {
		releaseID := rel.Get("releaseId").String()
		componentID := rel.Get("componentId").String()
		if releaseID == "" || componentID == "" {
			config.Debugf("skip release without ids: %s", rel.Raw)
			return true
		}

		if err = cli.PutRelease(releaseID, componentID, rel.Get("version").String()); err != nil {
			return false
		}
		stats.Releases += 1

		return ctx.Err() == nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to store release: %w", err)
	}

	feed.Get("vulnerabilities").ForEach(func(_, v gjson.Result) bool {
		row := DBRow{
			VulnID:      v.Get("id").String(),
			ComponentID: v.Get("componentId").String(),
			Name:        v.Get("name").String(),
			Severity:    normalizeSeverity(v.Get("severity").String(), v.Get("score").Float()),
			Score:       v.Get("score").Float(),
			Description: v.Get("description").String(),
			PublishDate: v.Get("published").String(),
			URL:         v.Get("url").String(),
			Source:      v.Get("source").String(),
		}

		if row.VulnID == "" || row.ComponentID == "" {
			config.Debugf("skip vulnerability without ids: %s", v.Raw)
			return true
		}

		if pd, perr := time.Parse(time.RFC3339, row.PublishDate); perr == nil {
			row.PublishDate = pd.Format("2006-01-02")
		}

		affected := v.Get("affected").Array()
		if len(affected) == 0 {
			// no ranges: every release of the component is affected
			affected = []gjson.Result{gjson.Parse(`{"min":"","max":""}`)}
		}

		for _, a := range affected {
			r := row
			r.MinVersion = a.Get("min").String()
			r.MaxVersion = a.Get("max").String()

			if err = cli.PutVuln(&r); err != nil {
				return false
			}
			stats.Ranges += 1
		}
		stats.Vulnerabilities += 1

		return ctx.Err() == nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to store vulnerability: %w", err)
	}

	if ctx.Err() != nil {
		return stats, ctx.Err()
	}

	return stats, nil
}
