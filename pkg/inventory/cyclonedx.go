package inventory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CycloneDX/cyclonedx-go"

	"github.com/kvesta/vulncollect/pkg/component"
)

const (
	PropComponentID   = "vulncollect:componentId"
	PropReleaseID     = "vulncollect:releaseId"
	PropComponentType = "vulncollect:componentType"
)

// CycloneDXBackend reads project BOMs from <Dir>/<project>.cdx.json.
type CycloneDXBackend struct {
	Dir string

	details map[string]component.RawComponent
}

func NewCycloneDXBackend(dir string) *CycloneDXBackend {
	return &CycloneDXBackend{Dir: dir}
}

func (b *CycloneDXBackend) bomPath(project string) (string, error) {
	if project == "" || strings.ContainsAny(project, `/\`) || project == ".." {
		return "", fmt.Errorf("%w: illegal project name %q", ErrInventoryFailure, project)
	}

	candidates := []string{
		filepath.Join(b.Dir, project+".cdx.json"),
		filepath.Join(b.Dir, project+".json"),
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}

	return "", fmt.Errorf("%w: no bom found for project %q in %s", ErrInventoryFailure, project, b.Dir)
}

// DecodeBOM reads a CycloneDX json document.
func DecodeBOM(path string) (*cyclonedx.BOM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bom := new(cyclonedx.BOM)
	if err = cyclonedx.NewBOMDecoder(f, cyclonedx.BOMFileFormatJSON).Decode(bom); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return bom, nil
}

// BOMEntries lists every component of the BOM, nested ones included, in
// document order. A parent comes before its sub components.
func (b *CycloneDXBackend) BOMEntries(ctx context.Context, project string) ([]*Entry, error) {
	path, err := b.bomPath(project)
	if err != nil {
		return nil, err
	}

	bom, err := DecodeBOM(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInventoryFailure, err)
	}

	b.details = map[string]component.RawComponent{}
	entries := []*Entry{}

	if bom.Components != nil {
		entries = b.walk(*bom.Components, "", entries)
	}

	return entries, nil
}

func (b *CycloneDXBackend) walk(comps []cyclonedx.Component, parent string, entries []*Entry) []*Entry {
	for i, c := range comps {
		ref := strconv.Itoa(i)
		if parent != "" {
			ref = parent + "/" + ref
		}

		entries = append(entries, b.entry(c, ref))

		if c.Components != nil {
			entries = b.walk(*c.Components, ref, entries)
		}
	}

	return entries
}

func (b *CycloneDXBackend) entry(c cyclonedx.Component, ref string) *Entry {
	props := properties(c)

	key := component.Key{
		ComponentID: props[PropComponentID],
		ReleaseID:   props[PropReleaseID],
	}
	if !key.Valid() {
		key.ComponentID = c.BOMRef
	}
	if !key.Valid() {
		return nil
	}

	if c.Name != "" {
		raw := component.RawComponent{
			Name:     c.Name,
			HomePage: homePage(c),
			Type:     component.ParseType(props[PropComponentType]),
			Key:      key,
		}
		if c.Version != "" {
			v := c.Version
			raw.Version = &v
		}

		b.details[ref] = raw
	}

	return &Entry{Key: key, Ref: ref}
}

func (b *CycloneDXBackend) ResolveDetail(ctx context.Context, entry Entry) (component.RawComponent, error) {
	raw, ok := b.details[entry.Ref]
	if !ok {
		return component.RawComponent{}, detailMiss(entry.Key, "no component detail in bom")
	}

	return raw, nil
}

func properties(c cyclonedx.Component) map[string]string {
	props := map[string]string{}
	if c.Properties == nil {
		return props
	}

	for _, p := range *c.Properties {
		props[p.Name] = p.Value
	}

	return props
}

func homePage(c cyclonedx.Component) string {
	if c.ExternalReferences == nil {
		return ""
	}

	for _, ref := range *c.ExternalReferences {
		if ref.Type == cyclonedx.ERTypeWebsite {
			return ref.URL
		}
	}

	return ""
}
