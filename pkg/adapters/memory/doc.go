// Package memory provides in-process implementations of the run ledger and
// the page-memory lock, for tests and single-host embedding.
package memory
