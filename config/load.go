package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "VULNCOLLECT"

	SourceCycloneDX = "cyclonedx"
	SourceHTTP      = "http"
	SourceSQLite    = "sqlite"
)

type InventorySettings struct {
	Source  string `mapstructure:"source" yaml:"source"`
	BOMDir  string `mapstructure:"bom_dir" yaml:"bom_dir"`
	URL     string `mapstructure:"url" yaml:"url"`
	Token   string `mapstructure:"token" yaml:"token,omitempty"`
	Timeout int    `mapstructure:"timeout" yaml:"timeout"`
}

type KBSettings struct {
	Source  string `mapstructure:"source" yaml:"source"`
	Path    string `mapstructure:"path" yaml:"path"`
	URL     string `mapstructure:"url" yaml:"url"`
	Token   string `mapstructure:"token" yaml:"token,omitempty"`
	Timeout int    `mapstructure:"timeout" yaml:"timeout"`
}

// Settings is the effective configuration of a collection run.
type Settings struct {
	ProjectList                string `mapstructure:"project_list" yaml:"project_list"`
	ReportLocation             string `mapstructure:"report_location" yaml:"report_location"`
	IncludeUnspecifiedVersions bool   `mapstructure:"include_unspecified_versions" yaml:"include_unspecified_versions"`
	HaltOnError                bool   `mapstructure:"halt_on_error" yaml:"halt_on_error"`
	Verbose                    bool   `mapstructure:"verbose" yaml:"verbose"`

	Inventory InventorySettings `mapstructure:"inventory" yaml:"inventory"`
	KB        KBSettings        `mapstructure:"kb" yaml:"kb"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project_list", "")
	v.SetDefault("report_location", "")
	v.SetDefault("include_unspecified_versions", true)
	v.SetDefault("halt_on_error", false)
	v.SetDefault("verbose", false)

	v.SetDefault("inventory.source", SourceCycloneDX)
	v.SetDefault("inventory.bom_dir", ".")
	v.SetDefault("inventory.url", "")
	v.SetDefault("inventory.token", "")
	v.SetDefault("inventory.timeout", 60)

	v.SetDefault("kb.source", SourceSQLite)
	v.SetDefault("kb.path", DefaultKBPath())
	v.SetDefault("kb.url", "")
	v.SetDefault("kb.token", "")
	v.SetDefault("kb.timeout", 60)
}

// DefaultKBPath is the location of the local knowledge base.
func DefaultKBPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir, _ = os.Getwd()
	}

	return filepath.Join(dir, ".vulncollect", "kb.db")
}

// Load reads the configuration file (if any), a .env file in the working
// directory and VULNCOLLECT_* environment variables.
func Load(cfgFile string) (*Settings, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if strings.HasSuffix(cfgFile, ".properties") {
			v.SetConfigType("properties")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("vulncollect")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	applyLegacyKeys(v)

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if used := v.ConfigFileUsed(); used != "" {
		Debugf("Using config file: %s", used)
	}

	return s, nil
}

// legacyKeys maps dotted property names of older configuration files to
// their current key. Viper reads a dotted name as a nested key, so they
// would otherwise be dropped.
var legacyKeys = map[string]string{
	"include.unspecified.versions": "include_unspecified_versions",
}

// applyLegacyKeys lets a legacy key stand in for an unset current key. The
// current key wins when both are given.
func applyLegacyKeys(v *viper.Viper) {
	for legacy, key := range legacyKeys {
		if !v.IsSet(legacy) {
			continue
		}

		Debugf("Configuration key %s is deprecated, use %s", legacy, key)
		v.SetDefault(key, v.Get(legacy))
	}
}

// Validate checks the collaborator settings.
func (s *Settings) Validate() error {
	switch s.Inventory.Source {
	case SourceCycloneDX:
		if s.Inventory.BOMDir == "" {
			return errors.New("inventory.bom_dir is required for the cyclonedx inventory")
		}
	case SourceHTTP:
		if s.Inventory.URL == "" {
			return errors.New("inventory.url is required for the http inventory")
		}
	default:
		return fmt.Errorf("unknown inventory source %q", s.Inventory.Source)
	}

	switch s.KB.Source {
	case SourceSQLite:
		if s.KB.Path == "" {
			return errors.New("kb.path is required for the sqlite knowledge base")
		}
	case SourceHTTP:
		if s.KB.URL == "" {
			return errors.New("kb.url is required for the http knowledge base")
		}
	default:
		return fmt.Errorf("unknown knowledge base source %q", s.KB.Source)
	}

	return nil
}

func (i InventorySettings) RequestTimeout() time.Duration {
	return time.Duration(i.Timeout) * time.Second
}

func (k KBSettings) RequestTimeout() time.Duration {
	return time.Duration(k.Timeout) * time.Second
}

// YAML renders the settings with tokens masked.
func (s Settings) YAML() (string, error) {
	masked := s
	if masked.Inventory.Token != "" {
		masked.Inventory.Token = "****"
	}
	if masked.KB.Token != "" {
		masked.KB.Token = "****"
	}

	data, err := yaml.Marshal(masked)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// ProjectList splits a comma separated project list.
func ProjectList(list string) ([]string, error) {
	projects := []string{}
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		projects = append(projects, p)
	}

	if len(projects) == 0 {
		return nil, errors.New("unable to determine project list, please provide comma separated list")
	}

	return projects, nil
}
