// Package extract turns fetched netkeiba pages into race records and rows.
//
// All markup knowledge lives in rules.go as named selectors. Each extraction
// function applies one rule and reports what it could not find: descriptive
// fields fall back to the race.Unknown sentinel, tables that are missing yield
// ErrTableNotFound, and a results table whose anchors do not line up with its
// rows is returned whole with ErrJoinMismatch instead of being truncated.
package extract
