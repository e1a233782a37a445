package internal

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kvesta/vulncollect/config"
	"github.com/kvesta/vulncollect/internal/report"
	"github.com/kvesta/vulncollect/internal/vulnscan"
	"github.com/kvesta/vulncollect/pkg/inventory"
	"github.com/kvesta/vulncollect/pkg/vulnlib"
)

// CollectOptions are command line switches that do not live in the settings.
type CollectOptions struct {
	Table bool
}

// Result is the outcome of one project.
type Result struct {
	Project string
	Dir     string
	Bucket  *vulnscan.Bucket
	Err     error
}

// NewInventoryClient builds the inventory client selected in the settings.
func NewInventoryClient(s config.InventorySettings) (inventory.Client, error) {
	switch s.Source {
	case config.SourceCycloneDX:
		return inventory.NewCollector(inventory.NewCycloneDXBackend(s.BOMDir)), nil
	case config.SourceHTTP:
		return inventory.NewCollector(inventory.NewHTTPBackend(s.URL, s.Token, s.RequestTimeout())), nil
	}

	return nil, fmt.Errorf("unknown inventory source %q", s.Source)
}

// NewLookupClient builds the knowledge base client selected in the settings.
// The returned close function releases the local database, if any.
func NewLookupClient(s config.KBSettings) (vulnlib.Client, func(), error) {
	switch s.Source {
	case config.SourceSQLite:
		cli, err := vulnlib.OpenDB(s.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open knowledge base %s: %w", s.Path, err)
		}
		return cli, func() { cli.Close() }, nil
	case config.SourceHTTP:
		return vulnlib.NewHTTPClient(s.URL, s.Token, s.RequestTimeout()), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown knowledge base source %q", s.Source)
}

// DoCollect processes the projects one after another and writes a report
// directory for each. A failed project is skipped unless HaltOnError is set.
func DoCollect(ctx context.Context, s *config.Settings, projects []string, opts CollectOptions) ([]Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if err := report.ValidateReportLocation(s.ReportLocation); err != nil {
		return nil, err
	}

	inv, err := NewInventoryClient(s.Inventory)
	if err != nil {
		return nil, err
	}

	lookup, closeLookup, err := NewLookupClient(s.KB)
	if err != nil {
		return nil, err
	}
	defer closeLookup()

	scanOpts := vulnscan.Options{IncludeUnspecifiedVersions: s.IncludeUnspecifiedVersions}
	processor := vulnscan.NewProcessor(inv, lookup, scanOpts)

	return runProjects(ctx, processor, s, projects, opts)
}

func runProjects(ctx context.Context, processor *vulnscan.Processor, s *config.Settings, projects []string, opts CollectOptions) ([]Result, error) {
	log.Printf("List of projects to process: %d", len(projects))

	results := []Result{}
	var errs []error

	for _, project := range projects {
		if err := ctx.Err(); err != nil {
			log.Printf("Interrupted, %d project(s) left unprocessed", len(projects)-len(results))
			errs = append(errs, err)
			break
		}

		log.Printf("Processing for project: %s", config.Green(project))

		res := collectProject(ctx, processor, s, project, opts)
		results = append(results, res)

		if res.Err == nil {
			continue
		}

		log.Printf("%s, error: %v", config.Red("Project "+project+" failed"), res.Err)
		errs = append(errs, res.Err)

		if s.HaltOnError {
			log.Printf("Halting, %d project(s) left unprocessed", len(projects)-len(results))
			break
		}
	}

	return results, errors.Join(errs...)
}

func collectProject(ctx context.Context, processor *vulnscan.Processor, s *config.Settings, project string, opts CollectOptions) Result {
	res := Result{Project: project}

	bucket, err := processor.Process(ctx, project)
	if err != nil {
		res.Err = err
		return res
	}
	res.Bucket = bucket

	dir, err := report.PrepareProjectDir(s.ReportLocation, project)
	if err != nil {
		res.Err = fmt.Errorf("project %q: %w", project, err)
		return res
	}
	res.Dir = dir

	err = report.WriteProject(dir, project, bucket, processor.Engine.Options)
	if err != nil {
		res.Err = fmt.Errorf("project %q: %w", project, err)
		return res
	}

	if err = report.ResolveCollectData(project, bucket, opts.Table); err != nil {
		log.Printf("report error %v", err)
	}

	return res
}
