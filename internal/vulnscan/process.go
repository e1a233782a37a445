package vulnscan

import (
	"context"
	"errors"
	"log"

	"github.com/kvesta/vulncollect/config"
	"github.com/kvesta/vulncollect/pkg/component"
	"github.com/kvesta/vulncollect/pkg/inventory"
	"github.com/kvesta/vulncollect/pkg/vulnlib"
)

// Processor runs inventory listing, classification, enrichment and
// partitioning for one project at a time.
type Processor struct {
	Inventory inventory.Client
	Engine    *Engine
}

// NewProcessor wires already constructed (and authenticated) clients.
func NewProcessor(inv inventory.Client, lookup vulnlib.Client, opts Options) *Processor {
	return &Processor{
		Inventory: inv,
		Engine:    NewEngine(lookup, opts),
	}
}

// Process returns the bucket of a project, or a *ProcessError and no bucket.
func (p *Processor) Process(ctx context.Context, project string) (*Bucket, error) {
	raws, err := p.Inventory.ListComponents(ctx, project)
	if err != nil {
		log.Printf("%s: %v", config.Red("Fatal error during inventory connectivity"), err)
		return nil, &ProcessError{Project: project, Kind: KindInventory, Err: err}
	}

	log.Printf("Found components: %d", len(raws))

	records, err := p.Engine.Enrich(ctx, component.ClassifyAll(raws))
	if err != nil {
		log.Printf("%s: %v", config.Red("Fatal error during vulnerability collection"), err)

		var pe *ProcessError
		if errors.As(err, &pe) {
			pe.Project = project
			return nil, pe
		}
		return nil, &ProcessError{Project: project, Kind: KindVulnerabilityService, Err: err}
	}

	return Partition(records), nil
}
