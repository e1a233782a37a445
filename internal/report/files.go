package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kvesta/vulncollect/config"
	"github.com/kvesta/vulncollect/internal/vulnscan"
)

const jsonDataDir = "jsondata"

//go:embed web
var webResources embed.FS

var (
	timeNow  = time.Now
	newRunID = uuid.NewString
)

// ProjectConfig is read by the web report as configData.
type ProjectConfig struct {
	ProjectName                string `json:"projectName"`
	ProjectDateCreated         string `json:"projectDateCreated"`
	RunID                      string `json:"runId"`
	IncludeUnspecifiedVersions bool   `json:"includeUnspecifiedVersions"`
}

func exists(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsExist(err) {
			return true
		}

		return false
	}
	return true
}

// formatProjectPath strips characters that do not survive as a directory name.
func formatProjectPath(name string) string {
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "#", "_")

	return strings.TrimSpace(name)
}

// ValidateReportLocation checks that reports can be written below path.
func ValidateReportLocation(path string) error {
	if path == "" {
		return fmt.Errorf("report location not specified")
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("report location %q does not exist: %w", path, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("report location %q is not a directory", path)
	}

	tmp, err := os.CreateTemp(path, ".vulncollect-*")
	if err != nil {
		return fmt.Errorf("report location %q has no write access: %w", path, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())

	return nil
}

// PrepareProjectDir creates the report directory of a project and copies the
// web resources into it.
func PrepareProjectDir(root, project string) (string, error) {
	name := formatProjectPath(project)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("cannot use project name %q as a report directory", project)
	}

	dir := filepath.Join(root, name)
	if !exists(dir) {
		err := os.MkdirAll(dir, os.FileMode(0755))
		if err != nil {
			return "", fmt.Errorf("unable to create report sub-directory for project %s: %w", name, err)
		}
	}

	web, err := fs.Sub(webResources, "web")
	if err != nil {
		return "", err
	}

	err = fs.WalkDir(web, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		target := filepath.Join(dir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(target, os.FileMode(0755))
		}

		data, err := fs.ReadFile(web, path)
		if err != nil {
			return err
		}

		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		return "", fmt.Errorf("error during creation of report directory: %w", err)
	}

	err = os.MkdirAll(filepath.Join(dir, jsonDataDir), os.FileMode(0755))
	if err != nil {
		return "", err
	}

	return dir, nil
}

// WriteProject writes the data files the web report reads.
func WriteProject(dir, project string, bucket *vulnscan.Bucket, opts vulnscan.Options) error {
	err := writeJSONFile(dir, "json_expanded.js", "vcData", linkSafe(bucket.Versioned))
	if err != nil {
		return err
	}

	if opts.IncludeUnspecifiedVersions {
		err = writeJSONFile(dir, "json_expanded_unspecified.js", "vcDataNoVersions", linkSafe(bucket.Unspecified))
		if err != nil {
			return err
		}
	}

	cfg := ProjectConfig{
		ProjectName:                project,
		ProjectDateCreated:         timeNow().Format("01/02/2006"),
		RunID:                      newRunID(),
		IncludeUnspecifiedVersions: opts.IncludeUnspecifiedVersions,
	}

	err = writeJSONFile(dir, "json_config.js", "configData", cfg)
	if err != nil {
		return err
	}

	log.Printf("Finished writing data for project %s in: %s", project, config.Yellow(dir))

	return nil
}

// linkSafe copies the records, dropping homepages the report page must not
// link to. Only http and https urls are kept.
func linkSafe(records []vulnscan.EnrichedComponent) []vulnscan.EnrichedComponent {
	safe := make([]vulnscan.EnrichedComponent, len(records))
	copy(safe, records)

	for i := range safe {
		if safe[i].HomePage == "" {
			continue
		}

		u, err := url.Parse(safe[i].HomePage)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			config.Debugf("Dropping homepage %q of component %s", safe[i].HomePage, safe[i].Name)
			safe[i].HomePage = ""
		}
	}

	return safe
}

// writeJSONFile assigns the data to a javascript variable so the page can
// load it with a plain script tag.
func writeJSONFile(dir, fileName, varName string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	file := filepath.Join(dir, jsonDataDir, fileName)
	config.Debugf("Writing out JSON output to: %s", file)

	content := append([]byte(varName+" = "), data...)
	err = os.WriteFile(file, content, 0644)
	if err != nil {
		return fmt.Errorf("error during JSON transformation: %w", err)
	}

	return nil
}
