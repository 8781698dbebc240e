// Package race defines the identifiers and records produced by the results pipeline.
//
// A race is addressed by a 12-digit RaceID (year, venue, meeting, day, race number)
// and each horse by a 10-digit HorseID. Records extracted from a page carry a
// per-field status so that a partially parsed page is still a usable, inspectable
// value: fields that could not be found hold the Unknown sentinel instead of
// aborting the whole extraction.
package race
