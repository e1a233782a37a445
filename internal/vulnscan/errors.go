package vulnscan

import (
	"fmt"

	"github.com/kvesta/vulncollect/pkg/inventory"
	"github.com/kvesta/vulncollect/pkg/vulnlib"
)

// Kind tells which collaborator aborted a project.
type Kind int

const (
	KindInventory Kind = iota + 1
	KindVulnerabilityService
)

func (k Kind) String() string {
	switch k {
	case KindInventory:
		return "inventory failure"
	case KindVulnerabilityService:
		return "vulnerability service failure"
	}
	return "unknown failure"
}

// ProcessError aborts the processing of a single project.
type ProcessError struct {
	Project string
	Kind    Kind
	Err     error
}

func (e *ProcessError) Error() string {
	if e.Project == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("project %q: %s: %v", e.Project, e.Kind, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Is matches the collaborator sentinel of the error kind, so that
// errors.Is(err, vulnlib.ErrServiceFailure) holds for every lookup fault.
func (e *ProcessError) Is(target error) bool {
	switch e.Kind {
	case KindInventory:
		return target == inventory.ErrInventoryFailure
	case KindVulnerabilityService:
		return target == vulnlib.ErrServiceFailure
	}
	return false
}
