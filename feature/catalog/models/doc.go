// Package models defines the normalized catalog entities.
//
// The operator edits four JSON facets on the product row (attributes,
// variants, groups, categories); everything else in this package is a
// derived cache rebuilt deterministically by the reconcile package whenever
// a facet's content hash changes. Entity identity is always an explicit key
// (attribute-value sets for variants, slug+parent for categories), never row
// position.
package models
