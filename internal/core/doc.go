// Package core provides the business logic for spreadsheet catalog import and export.
//
// This package contains the domain logic independent of any UI or transport
// layer. The web server, the CLI and tests use it unchanged.
//
// # Architecture
//
//   - SchemaRegistry: the header contract. Four required columns followed by
//     every registered attribute column. Registries are immutable values; the
//     Service swaps snapshots atomically when an attribute is registered.
//   - SpreadsheetReader: loads xlsx or csv files into ordered rows, in one
//     pass for small files and through a windowed row iterator for large ones.
//   - SpreadsheetWriter: writes the same header contract, so an export is
//     always a valid import.
//   - RowValidator: normalizes identifier, title, price and attribute values.
//   - ReconciliationEngine: create-or-update per row with failure isolation.
//   - ImportReport: counts and per-row diagnostics of one run.
//   - Service: the facade tying these to a Store.
//
// # Errors
//
// IOError, FormatError and SchemaError abort a run before any row is applied.
// Row problems never abort a run; they are collected as ignored rows.
// [MapError] turns any of these into a coded, user-facing message.
//
// # Concurrency
//
// A run is single-threaded. [ImportLimiter] bounds how many runs the server
// executes at once. Stores are expected to make each single write atomic;
// runs are not wrapped in a transaction.
package core
