// Package credentials reads exported pre-shared-key records into memory.
//
// A Loader parses a header-row CSV export, keys every row by its secret value,
// and stamps each record with a migration identity derived from a RunContext
// computed once per run.
package credentials
