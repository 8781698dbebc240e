// Package pipeline drives the fetch, validate, extract and persist steps for
// every race and horse identifier.
//
// Race identifiers are enumerated either from the daily listing pages over a
// date window or by synthesising every venue/meeting/day/race combination for
// a year. Each identifier is processed on its own: a failed fetch, a missing
// table or a failed write is logged and the run moves on. Requests are paced
// by a Pacer so that consecutive network calls are at least the configured
// delay apart.
package pipeline
