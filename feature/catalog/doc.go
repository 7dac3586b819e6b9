// Package catalog is the product catalog feature: products edited as rows
// with four JSON facet documents, reconciled into normalized attributes,
// variants, groups and categories, plus deterministic variant navigation
// over the reconciled state.
//
// The heavy lifting lives in the subpackages: models holds the schema,
// reconcile turns facet documents into table state, navigation infers which
// attribute combinations exist and resolves navigation steps. This package
// wires them behind the HTTP surface and the read model.
package catalog
