// Package inventory resolves a project's bill of materials into raw components.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kvesta/vulncollect/config"
	"github.com/kvesta/vulncollect/pkg/component"
)

var (
	// ErrInventoryFailure aborts the whole project.
	ErrInventoryFailure = errors.New("inventory failure")

	// ErrDetailLookupMiss only skips the component it was raised for.
	ErrDetailLookupMiss = errors.New("component detail lookup miss")
)

// Client lists the components of a project.
type Client interface {
	ListComponents(ctx context.Context, project string) ([]component.RawComponent, error)
}

// Entry is one line of a project BOM. Several entries may share a Key,
// Ref tells them apart inside the backend.
type Entry struct {
	Key component.Key
	Ref string
}

// Backend is the raw BOM source behind a Collector. BOMEntries may contain
// nil entries, they are ignored.
type Backend interface {
	BOMEntries(ctx context.Context, project string) ([]*Entry, error)
	ResolveDetail(ctx context.Context, entry Entry) (component.RawComponent, error)
}

// Collector turns BOM keys into raw components, skipping keys whose
// detail cannot be resolved.
type Collector struct {
	Backend Backend
}

func NewCollector(b Backend) *Collector {
	return &Collector{Backend: b}
}

func (c *Collector) ListComponents(ctx context.Context, project string) ([]component.RawComponent, error) {
	entries, err := c.Backend.BOMEntries(ctx, project)
	if err != nil {
		if errors.Is(err, ErrInventoryFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: unable to get component list for project %q: %v", ErrInventoryFailure, project, err)
	}

	compList := make([]component.RawComponent, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		key := entry.Key

		if err = ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInventoryFailure, err)
		}

		raw, err := c.Backend.ResolveDetail(ctx, *entry)
		if err != nil {
			if errors.Is(err, ErrDetailLookupMiss) {
				log.Printf("%s, error: %v", config.Yellow("Could not get component information for key: "+key.String()), err)
				continue
			}
			return nil, fmt.Errorf("%w: component %s: %v", ErrInventoryFailure, key, err)
		}

		if !raw.Key.Valid() {
			raw.Key = key
		}

		compList = append(compList, raw)
	}

	return compList, nil
}

func detailMiss(key component.Key, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrDetailLookupMiss, key, reason)
}
