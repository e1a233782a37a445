package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvesta/vulncollect/config"
	"github.com/kvesta/vulncollect/internal/vulnscan"
	"github.com/kvesta/vulncollect/pkg/inventory"
	"github.com/kvesta/vulncollect/pkg/vulnlib"
)

const demoBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.4",
  "version": 1,
  "components": [
    {
      "type": "library",
      "bom-ref": "openssl@1.0.2",
      "name": "openssl",
      "version": "1.0.2",
      "properties": [
        {"name": "vulncollect:componentId", "value": "openssl"},
        {"name": "vulncollect:releaseId", "value": "rel-openssl-102"},
        {"name": "vulncollect:componentType", "value": "standard"}
      ]
    },
    {
      "type": "library",
      "bom-ref": "zlib",
      "name": "zlib",
      "version": "Unspecified",
      "properties": [
        {"name": "vulncollect:componentType", "value": "standard"}
      ]
    },
    {
      "type": "application",
      "bom-ref": "inhouse",
      "name": "inhouse",
      "version": "2.3",
      "properties": [
        {"name": "vulncollect:componentType", "value": "custom"}
      ]
    }
  ]
}`

const demoFeed = `{
  "releases": [
    {"releaseId": "rel-openssl-102", "componentId": "openssl", "version": "1.0.2"}
  ],
  "vulnerabilities": [
    {"id": "CVE-2014-0160", "componentId": "openssl", "severity": "high", "score": 7.5,
     "affected": [{"min": "=1.0.1", "max": "=1.0.2"}]},
    {"id": "CVE-2016-2107", "componentId": "openssl", "severity": "high", "score": 5.9,
     "affected": [{"min": "=1.0.1", "max": "=1.0.2"}]},
    {"id": "CVE-2022-37434", "componentId": "zlib", "severity": "critical", "score": 9.8}
  ]
}`

func testSettings(t *testing.T) *config.Settings {
	t.Helper()

	bomDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bomDir, "demo.cdx.json"), []byte(demoBOM), 0644))

	kbPath := filepath.Join(t.TempDir(), "kb.db")
	db, err := vulnlib.OpenDB(kbPath)
	require.NoError(t, err)
	_, err = db.Import(context.Background(), []byte(demoFeed))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	return &config.Settings{
		ReportLocation:             t.TempDir(),
		IncludeUnspecifiedVersions: true,
		Inventory: config.InventorySettings{
			Source:  config.SourceCycloneDX,
			BOMDir:  bomDir,
			Timeout: 5,
		},
		KB: config.KBSettings{
			Source:  config.SourceSQLite,
			Path:    kbPath,
			Timeout: 5,
		},
	}
}

func TestDoCollect(t *testing.T) {
	s := testSettings(t)

	results, err := DoCollect(context.Background(), s, []string{"demo"}, CollectOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	require.NoError(t, res.Err)
	require.NotNil(t, res.Bucket)

	// openssl fans out to two records, inhouse passes through
	require.Len(t, res.Bucket.Versioned, 3)
	assert.Equal(t, "CVE-2014-0160", res.Bucket.Versioned[0].Vuln.ID)
	assert.Equal(t, "CVE-2016-2107", res.Bucket.Versioned[1].Vuln.ID)
	assert.True(t, res.Bucket.Versioned[2].Passthrough())

	// zlib has no release, so it is searched by component
	require.Len(t, res.Bucket.Unspecified, 1)
	assert.Equal(t, "CVE-2022-37434", res.Bucket.Unspecified[0].Vuln.ID)

	for _, f := range []string{"index.html", "jsondata/json_expanded.js", "jsondata/json_expanded_unspecified.js", "jsondata/json_config.js"} {
		assert.FileExists(t, filepath.Join(s.ReportLocation, "demo", filepath.FromSlash(f)))
	}
}

func TestDoCollectExcludesUnspecified(t *testing.T) {
	s := testSettings(t)
	s.IncludeUnspecifiedVersions = false

	results, err := DoCollect(context.Background(), s, []string{"demo"}, CollectOptions{})
	require.NoError(t, err)

	assert.Empty(t, results[0].Bucket.Unspecified)
	assert.NoFileExists(t, filepath.Join(s.ReportLocation, "demo", "jsondata", "json_expanded_unspecified.js"))
}

func TestDoCollectFailedProjects(t *testing.T) {
	tests := []struct {
		name        string
		halt        bool
		wantResults int
	}{
		{name: "continue", halt: false, wantResults: 3},
		{name: "halt", halt: true, wantResults: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings(t)
			s.HaltOnError = tt.halt

			results, err := DoCollect(context.Background(), s, []string{"missing", "demo", "other"}, CollectOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, inventory.ErrInventoryFailure)
			require.Len(t, results, tt.wantResults)

			var pe *vulnscan.ProcessError
			require.ErrorAs(t, results[0].Err, &pe)
			assert.Equal(t, vulnscan.KindInventory, pe.Kind)
			assert.Nil(t, results[0].Bucket)
			assert.NoDirExists(t, filepath.Join(s.ReportLocation, "missing"))

			if !tt.halt {
				assert.NoError(t, results[1].Err)
				assert.Error(t, results[2].Err)
			}
		})
	}
}

func TestDoCollectInvalidSettings(t *testing.T) {
	s := testSettings(t)
	s.ReportLocation = filepath.Join(s.ReportLocation, "nope")

	_, err := DoCollect(context.Background(), s, []string{"demo"}, CollectOptions{})
	assert.Error(t, err)

	s = testSettings(t)
	s.KB.Source = "carrier-pigeon"
	_, err = DoCollect(context.Background(), s, []string{"demo"}, CollectOptions{})
	assert.Error(t, err)
}

func TestDoCollectCancelled(t *testing.T) {
	s := testSettings(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := DoCollect(ctx, s, []string{"demo", "other"}, CollectOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.NoDirExists(t, filepath.Join(s.ReportLocation, "demo"))
}
