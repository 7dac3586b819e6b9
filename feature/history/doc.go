// Package history records what each reconciliation run did.
//
// The Recorder rides the reconciliation transaction, so a rolled-back save
// leaves no history rows. Entries are grouped by the run's transaction id;
// price transitions additionally get their own entries with old and new
// values and the acting operator. The feature exposes read-only endpoints
// for auditing a variant's price timeline, a single run, or a product's
// recent changes.
package history
