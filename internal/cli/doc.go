// Package cli implements the command-line interface for keiba-results.
//
// The cli package provides the Cobra commands that select an enumeration
// strategy (by-date or combinatorial), run the horse history and pedigree
// passes, and print a run report as a table or JSON. It wires the config,
// fetcher, storage, filter and pipeline packages together.
package cli
