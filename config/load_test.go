package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())

		s, err := Load("")
		require.NoError(t, err)

		assert.True(t, s.IncludeUnspecifiedVersions)
		assert.False(t, s.HaltOnError)
		assert.Equal(t, SourceCycloneDX, s.Inventory.Source)
		assert.Equal(t, SourceSQLite, s.KB.Source)
		assert.Equal(t, 60, s.KB.Timeout)
		assert.NoError(t, s.Validate())
	})

	t.Run("From YAML file", func(t *testing.T) {
		dir := t.TempDir()
		cfg := filepath.Join(dir, "collector.yaml")
		content := `
project_list: "alpha, beta"
report_location: /tmp/reports
include_unspecified_versions: false
inventory:
  source: http
  url: http://inventory.local
kb:
  source: http
  url: http://kb.local
  token: secret
`
		require.NoError(t, os.WriteFile(cfg, []byte(content), 0644))

		s, err := Load(cfg)
		require.NoError(t, err)

		assert.Equal(t, "alpha, beta", s.ProjectList)
		assert.Equal(t, "/tmp/reports", s.ReportLocation)
		assert.False(t, s.IncludeUnspecifiedVersions)
		assert.Equal(t, "http://inventory.local", s.Inventory.URL)
		assert.Equal(t, "secret", s.KB.Token)
		assert.NoError(t, s.Validate())

		out, err := s.YAML()
		require.NoError(t, err)
		assert.Contains(t, out, "kb.local")
		assert.NotContains(t, out, "secret")
	})

	t.Run("From env", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("VULNCOLLECT_INCLUDE_UNSPECIFIED_VERSIONS", "false")
		t.Setenv("VULNCOLLECT_KB_SOURCE", "http")
		t.Setenv("VULNCOLLECT_KB_URL", "http://kb.env")

		s, err := Load("")
		require.NoError(t, err)

		assert.False(t, s.IncludeUnspecifiedVersions)
		assert.Equal(t, SourceHTTP, s.KB.Source)
		assert.Equal(t, "http://kb.env", s.KB.URL)
	})

	t.Run("Legacy properties key", func(t *testing.T) {
		t.Chdir(t.TempDir())
		tests := []struct {
			name    string
			content string
			want    bool
		}{
			{name: "legacy false", content: "include.unspecified.versions=false\n", want: false},
			{name: "legacy true", content: "include.unspecified.versions=true\n", want: true},
			{
				name:    "current key wins",
				content: "include.unspecified.versions=false\ninclude_unspecified_versions=true\n",
				want:    true,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := filepath.Join(t.TempDir(), "vulncollect.properties")
				content := "project_list=alpha\n" + tt.content
				require.NoError(t, os.WriteFile(cfg, []byte(content), 0644))

				s, err := Load(cfg)
				require.NoError(t, err)

				assert.Equal(t, "alpha", s.ProjectList)
				assert.Equal(t, tt.want, s.IncludeUnspecifiedVersions)
			})
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{
			name: "ok",
			s: Settings{
				Inventory: InventorySettings{Source: SourceCycloneDX, BOMDir: "."},
				KB:        KBSettings{Source: SourceSQLite, Path: "kb.db"},
			},
		},
		{
			name: "unknown_inventory",
			s: Settings{
				Inventory: InventorySettings{Source: "ldap"},
				KB:        KBSettings{Source: SourceSQLite, Path: "kb.db"},
			},
			wantErr: true,
		},
		{
			name: "http_kb_without_url",
			s: Settings{
				Inventory: InventorySettings{Source: SourceCycloneDX, BOMDir: "."},
				KB:        KBSettings{Source: SourceHTTP},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProjectList(t *testing.T) {
	got, err := ProjectList(" alpha,beta ,, gamma")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, got)

	_, err = ProjectList(" , ")
	assert.Error(t, err)
}
