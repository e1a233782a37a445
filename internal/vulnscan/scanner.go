package vulnscan

import (
	"github.com/kvesta/vulncollect/pkg/component"
)

// EnrichedComponent is a classified component with at most one matched
// vulnerability. A nil Vuln marks a passthrough record.
type EnrichedComponent struct {
	component.ClassifiedComponent

	Vuln *component.Vulnerability `json:"vulnSummary,omitempty"`
}

func (e EnrichedComponent) Passthrough() bool {
	return e.Vuln == nil
}

// Bucket holds the enriched records of one project split by version state.
type Bucket struct {
	Versioned   []EnrichedComponent `json:"versionList"`
	Unspecified []EnrichedComponent `json:"unspecifiedList"`
}

func (b *Bucket) Len() int {
	return len(b.Versioned) + len(b.Unspecified)
}

// Options are the run settings the engine reads.
type Options struct {
	IncludeUnspecifiedVersions bool
}

func DefaultOptions() Options {
	return Options{IncludeUnspecifiedVersions: true}
}
