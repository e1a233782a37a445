package vulnlib

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, data string) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	_, err := gz.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

func TestFetch(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "feed.json")
	packed := filepath.Join(dir, "feed.json.gz")
	require.NoError(t, os.WriteFile(plain, []byte(testFeed), 0644))
	require.NoError(t, os.WriteFile(packed, gzipped(t, testFeed), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed.json.gz":
			w.Write(gzipped(t, testFeed))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	for _, location := range []string{plain, packed, srv.URL + "/feed.json.gz"} {
		data, err := Fetch(ctx, srv.Client(), location)
		require.NoError(t, err, location)
		assert.JSONEq(t, testFeed, string(data), location)
	}

	_, err := Fetch(ctx, srv.Client(), srv.URL+"/missing.json")
	assert.Error(t, err)

	_, err = Fetch(ctx, nil, filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestImportSeverityFromScore(t *testing.T) {
	cli, err := OpenDB(filepath.Join(t.TempDir(), "kb.db"))
	require.NoError(t, err)
	defer cli.Close()

	feed := `{"vulnerabilities": [
	  {"id": "CVE-A", "componentId": "libx", "score": 9.1},
	  {"id": "CVE-B", "componentId": "libx", "severity": "NONE", "score": 5.0},
	  {"id": "CVE-C", "componentId": "libx", "severity": "Low", "score": 8.0}
	]}`

	_, err = cli.Import(context.Background(), []byte(feed))
	require.NoError(t, err)

	vulns, err := cli.SearchByComponent(context.Background(), "libx", UnboundedPage())
	require.NoError(t, err)
	require.Len(t, vulns, 3)

	got := map[string]string{}
	for _, v := range vulns {
		got[v.ID] = v.Severity
	}
	assert.Equal(t, map[string]string{"CVE-A": "critical", "CVE-B": "medium", "CVE-C": "low"}, got)
}

func TestSeverityFromScore(t *testing.T) {
	tests := []struct {
		name string
		args float64
		want string
	}{
		{name: "critical", args: 9.8, want: "critical"},
		{name: "high", args: 7.0, want: "high"},
		{name: "medium", args: 4.3, want: "medium"},
		{name: "low", args: 0.1, want: "low"},
		{name: "none", args: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := severityFromScore(tt.args); got != tt.want {
				t.Errorf("severityFromScore() = %v, want %v", got, tt.want)
			}
		})
	}
}
