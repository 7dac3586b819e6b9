package reconcile

import (
	"encoding/json"

	"catalog-manager/feature/catalog/models"
)

// FacetState is the ChangeDetector outcome for one facet.
type FacetState string

const (
	// FacetNotSent means the field was omitted from the request entirely.
	FacetNotSent FacetState = "not_sent"
	// FacetUnchanged means the incoming content hash matches the stored one.
	FacetUnchanged FacetState = "unchanged"
	// FacetChanged means the facet carries new content.
	FacetChanged FacetState = "changed"
	// FacetCleared means the facet was explicitly emptied.
	FacetCleared FacetState = "cleared"
)

// NeedsReconcile reports whether the facet must flow through its reconciler.
func (s FacetState) NeedsReconcile() bool {
	return s == FacetChanged || s == FacetCleared
}

// FacetOutcome pairs a facet's detected state with the hash and raw document
// to store if the save commits.
type FacetOutcome struct {
	State FacetState
	Hash  string
	Raw   json.RawMessage
}

// DetectChanges classifies each facet of the request against the stored
// per-facet hashes. Omitted fields never reach reconciliation, and a facet
// whose canonical hash matches the stored one short-circuits with zero
// writes. An explicit clear of an already-empty facet counts as unchanged.
func DetectChanges(req *SaveRequest, product *models.Product) (map[string]FacetOutcome, error) {
	stored := map[string]string{
		FacetAttributes: product.AttributesHash,
		FacetVariants:   product.VariantsHash,
		FacetGroups:     product.GroupsHash,
		FacetCategories: product.CategoriesHash,
	}
	incoming := map[string]json.RawMessage{
		FacetAttributes: req.Attributes,
		FacetVariants:   req.Variants,
		FacetGroups:     req.Groups,
		FacetCategories: req.Categories,
	}

	outcomes := make(map[string]FacetOutcome, len(incoming))

	for facet, raw := range incoming {
		if raw == nil {
			outcomes[facet] = FacetOutcome{State: FacetNotSent}
			continue
		}

		cleared := IsCleared(raw)
		canonical := raw
		if cleared {
			canonical = clearedDoc
		}

		hash, err := ContentHash(canonical)
		if err != nil {
			return nil, &ValidationError{Facet: facet, Reason: err.Error()}
		}

		switch {
		case hash == stored[facet]:
			outcomes[facet] = FacetOutcome{State: FacetUnchanged, Hash: hash, Raw: canonical}
		case cleared:
			outcomes[facet] = FacetOutcome{State: FacetCleared, Hash: hash, Raw: canonical}
		default:
			outcomes[facet] = FacetOutcome{State: FacetChanged, Hash: hash, Raw: canonical}
		}
	}

	return outcomes, nil
}
