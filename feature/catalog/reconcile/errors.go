package reconcile

import (
	"fmt"
	"strings"
)

// ValidationError reports a structurally malformed facet document. It is
// raised before any transaction opens, so a bad shape never leaves partial
// writes behind.
type ValidationError struct {
	Facet  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s facet: %s: %s", e.Facet, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s facet: %s", e.Facet, e.Reason)
}

// ReconciliationConflict reports two variant specs in one save resolving to
// the same attribute identity.
type ReconciliationConflict struct {
	IdentityKey string
	SKUs        []string
}

func (e *ReconciliationConflict) Error() string {
	return fmt.Sprintf("variant specs %s resolve to the same identity %s",
		strings.Join(e.SKUs, ", "), e.IdentityKey)
}

// ConcurrencyConflict reports a save carrying a stale product version.
type ConcurrencyConflict struct {
	Expected int
	Actual   int
}

func (e *ConcurrencyConflict) Error() string {
	return fmt.Sprintf("stale product version %d, current is %d", e.Expected, e.Actual)
}

// ReferentialIntegrityError reports a cross-reference that does not resolve,
// such as a group member key naming no variant of the product.
type ReferentialIntegrityError struct {
	Kind string
	Ref  string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s reference %q does not resolve", e.Kind, e.Ref)
}

// CategoryCycleError reports a parent chain that would make a category its
// own ancestor.
type CategoryCycleError struct {
	Path []string
}

func (e *CategoryCycleError) Error() string {
	return fmt.Sprintf("category path %s forms a cycle", strings.Join(e.Path, " > "))
}
