// Package reconcile turns the JSON facet documents edited on a product row
// into the normalized attribute, variant, group and category tables.
//
// A save flows through four stages inside one transaction:
//
// 1. Parse: decode and shape-validate every facet that was sent. Nothing
// touches the database until the whole request is structurally sound.
//
// 2. Detect: hash each facet's canonical form against the hash stored on the
// product. Omitted and unchanged facets never reach their reconciler, so an
// identical resave is a zero-write no-op.
//
// 3. Reconcile: each changed facet is diffed against the normalized tables.
// Variants match by attribute identity rather than SKU, groups by slug,
// categories by (slug, parent) node identity. Rows that fall out of the
// document are retired, not deleted, so history stays attached.
//
// 4. Commit: the raw documents and hashes are stored back on the product and
// its version is bumped once, guarded against concurrent saves.
//
// Price transitions and entity mutations are reported to the PriceHistory
// and ChangeSet collaborators inside the same transaction.
package reconcile
