package vulnlib

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kvesta/vulncollect/pkg/component"
)

var (
	// ErrServiceFailure marks every fault raised by a knowledge base search.
	ErrServiceFailure = errors.New("vulnerability service failure")

	ErrNotFound = errors.New("not found in knowledge base")
)

// Page restricts a search to a row window.
type Page struct {
	FirstRowIndex int
	LastRowIndex  int
	SortAscending bool
}

// UnboundedPage requests the whole result set in ascending order.
func UnboundedPage() Page {
	return Page{
		FirstRowIndex: 0,
		LastRowIndex:  math.MaxInt32,
		SortAscending: true,
	}
}

func (p Page) apply(vulns []component.Vulnerability) []component.Vulnerability {
	if p.FirstRowIndex >= len(vulns) || p.FirstRowIndex < 0 {
		return []component.Vulnerability{}
	}

	last := p.LastRowIndex
	if last >= len(vulns) || last < 0 {
		last = len(vulns) - 1
	}
	if last < p.FirstRowIndex {
		return []component.Vulnerability{}
	}

	return vulns[p.FirstRowIndex : last+1]
}

// Client searches the knowledge base for directly matched vulnerabilities.
type Client interface {
	SearchByRelease(ctx context.Context, releaseID string, page Page) ([]component.Vulnerability, error)
	SearchByComponent(ctx context.Context, componentID string, page Page) ([]component.Vulnerability, error)
}

// Search dispatches a lookup key to the matching search.
func Search(ctx context.Context, c Client, key component.LookupKey, page Page) ([]component.Vulnerability, error) {
	switch key.Kind {
	case component.ByReleaseKind:
		return c.SearchByRelease(ctx, key.ID, page)
	case component.ByComponentKind:
		return c.SearchByComponent(ctx, key.ID, page)
	}

	return nil, serviceError("search", key.ID, fmt.Errorf("unsupported lookup kind %d", key.Kind))
}

func serviceError(op, id string, err error) error {
	return fmt.Errorf("%w: %s %q: %v", ErrServiceFailure, op, id, err)
}

func notFound(op, id string) error {
	return fmt.Errorf("%w: %s %q: %w", ErrServiceFailure, op, id, ErrNotFound)
}
