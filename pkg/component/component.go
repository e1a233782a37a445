package component

import (
	"errors"
	"fmt"
	"strings"
)

const unspecifiedVersion = "unspecified"

// Type is the knowledge base classification of an inventory component.
type Type string

const (
	Standard         Type = "standard"
	StandardModified Type = "standard-modified"
	Custom           Type = "custom"
	Other            Type = "other"
)

// ParseType maps an inventory type string to a Type.
// Anything unrecognised is Other.
func ParseType(s string) Type {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "_", "-")

	switch Type(norm) {
	case Standard, StandardModified, Custom:
		return Type(norm)
	}

	return Other
}

// Key identifies a component or one of its releases in the knowledge base.
type Key struct {
	ComponentID string `json:"componentId,omitempty"`
	ReleaseID   string `json:"releaseId,omitempty"`
}

func (k Key) Valid() bool {
	return k.ComponentID != "" || k.ReleaseID != ""
}

func (k Key) String() string {
	if k.ReleaseID != "" {
		return fmt.Sprintf("%s#%s", k.ComponentID, k.ReleaseID)
	}
	return k.ComponentID
}

// RawComponent is a component entry as resolved by the inventory.
type RawComponent struct {
	Name     string  `json:"compName"`
	Version  *string `json:"compVersion"`
	HomePage string  `json:"compHomePage"`
	Type     Type    `json:"componentType"`
	Key      Key     `json:"componentKey"`
}

// VersionString returns the version or an empty string when it is null.
func (r RawComponent) VersionString() string {
	if r.Version == nil {
		return ""
	}
	return *r.Version
}

func (r RawComponent) String() string {
	return fmt.Sprintf("Name: %s Version: %s", r.Name, r.VersionString())
}

type ClassifiedComponent struct {
	RawComponent

	VersionSpecified bool `json:"isVersionSpecified"`
	IsStandard       bool `json:"isStandard"`
}

// Classify derives the version and knowledge base flags of a raw component.
func Classify(raw RawComponent) ClassifiedComponent {
	return ClassifiedComponent{
		RawComponent:     raw,
		VersionSpecified: versionSpecified(raw.Version),
		IsStandard:       raw.Type == Standard || raw.Type == StandardModified,
	}
}

// ClassifyAll classifies every component, keeping input order.
func ClassifyAll(raws []RawComponent) []ClassifiedComponent {
	classified := make([]ClassifiedComponent, 0, len(raws))
	for _, raw := range raws {
		classified = append(classified, Classify(raw))
	}

	return classified
}

func versionSpecified(v *string) bool {
	if v == nil {
		return false
	}

	return !strings.EqualFold(*v, unspecifiedVersion)
}

// LookupKind selects which knowledge base search a component is routed to.
type LookupKind int

const (
	ByReleaseKind LookupKind = iota + 1
	ByComponentKind
)

func (k LookupKind) String() string {
	switch k {
	case ByReleaseKind:
		return "release"
	case ByComponentKind:
		return "component"
	}
	return "unknown"
}

// LookupKey is either ByRelease(id) or ByComponent(id).
type LookupKey struct {
	Kind LookupKind
	ID   string
}

func ByRelease(id string) LookupKey {
	return LookupKey{Kind: ByReleaseKind, ID: id}
}

func ByComponent(id string) LookupKey {
	return LookupKey{Kind: ByComponentKind, ID: id}
}

func (l LookupKey) String() string {
	return fmt.Sprintf("%s:%s", l.Kind, l.ID)
}

var ErrInvalidKey = errors.New("component key carries neither a release nor a component id")

// LookupKeyFor routes a key to a search. A release id always wins.
func LookupKeyFor(k Key) (LookupKey, error) {
	switch {
	case k.ReleaseID != "":
		return ByRelease(k.ReleaseID), nil
	case k.ComponentID != "":
		return ByComponent(k.ComponentID), nil
	}

	return LookupKey{}, ErrInvalidKey
}
