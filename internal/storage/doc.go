// Package storage persists extracted race and horse data as CSV files.
//
// Each race produces at most one results file (horse_info_<race>.csv) and one
// payout file (return_info_<race>.csv); both are overwritten when a race is
// fetched again. A single race_info.csv accumulates one summary line per race
// and is only ever appended to, so re-processing a race adds a duplicate line.
// Horse history and pedigree files live in the horse/ and ped/ subdirectories.
// Every file is UTF-8 with a byte-order mark so spreadsheets detect the
// encoding.
package storage
