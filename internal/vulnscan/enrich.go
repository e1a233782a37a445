package vulnscan

import (
	"context"
	"fmt"
	"log"

	"github.com/kvesta/vulncollect/config"
	"github.com/kvesta/vulncollect/pkg/component"
	"github.com/kvesta/vulncollect/pkg/vulnlib"
)

// Engine attaches knowledge base vulnerabilities to classified components.
type Engine struct {
	Lookup  vulnlib.Client
	Options Options
}

func NewEngine(lookup vulnlib.Client, opts Options) *Engine {
	return &Engine{Lookup: lookup, Options: opts}
}

// Enrich walks the components in order. Custom components pass through
// without a lookup, unspecified versions are dropped unless included, every
// other component becomes one record per matched vulnerability or a single
// passthrough record. The first lookup fault aborts with no output.
func (e *Engine) Enrich(ctx context.Context, components []component.ClassifiedComponent) ([]EnrichedComponent, error) {
	enriched := make([]EnrichedComponent, 0, len(components))

	for _, c := range components {
		if !c.IsStandard {
			config.Debugf("Component '%s' is not a standard component, skipping search", c)
			enriched = append(enriched, EnrichedComponent{ClassifiedComponent: c})
			continue
		}

		if !c.VersionSpecified {
			config.Debugf("Component '%s' has unspecified version", c)
			if !e.Options.IncludeUnspecifiedVersions {
				continue
			}
		}

		records, err := e.collectVulns(ctx, c)
		if err != nil {
			return nil, err
		}

		enriched = append(enriched, records...)
	}

	return enriched, nil
}

func (e *Engine) collectVulns(ctx context.Context, c component.ClassifiedComponent) ([]EnrichedComponent, error) {
	key, err := component.LookupKeyFor(c.Key)
	if err != nil {
		return nil, &ProcessError{
			Kind: KindVulnerabilityService,
			Err:  fmt.Errorf("%w: component %q: %w", vulnlib.ErrServiceFailure, c.Name, err),
		}
	}

	config.Debugf("Getting vulnerability information for component '%s' by %s", c, key)

	vulns, err := vulnlib.Search(ctx, e.Lookup, key, vulnlib.UnboundedPage())
	if err != nil {
		return nil, &ProcessError{Kind: KindVulnerabilityService, Err: err}
	}

	if len(vulns) == 0 {
		config.Debugf("No vulnerabilities found for component %s", c)
		return []EnrichedComponent{{ClassifiedComponent: c}}, nil
	}

	log.Printf("Adding %d vulnerabilities for: %s", len(vulns), c.Name)

	records := make([]EnrichedComponent, 0, len(vulns))
	for i := range vulns {
		v := vulns[i]
		records = append(records, EnrichedComponent{
			ClassifiedComponent: c,
			Vuln:                &v,
		})
	}

	return records, nil
}
