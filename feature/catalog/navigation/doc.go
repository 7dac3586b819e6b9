// Package navigation infers which attribute combinations actually exist for
// a product and resolves "what the operator clicks next" into a concrete
// group or variant.
//
// The relation is rebuilt from the active variant set, never stored: two
// option values are related when at least one variant carries both. On top
// of it the resolver turns a context (the group or variant being viewed)
// plus newly picked values into a deterministic target, preferring groups
// over bare variants and breaking ties toward the most pins satisfied and
// then the lowest id.
//
// Snapshots are cached per product with a TTL and singleflight stampede
// protection; reconciliation invalidates a product's snapshot when a save
// commits.
package navigation
