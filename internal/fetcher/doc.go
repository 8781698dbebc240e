// Package fetcher retrieves pages from the netkeiba results database.
//
// Each call performs exactly one GET request with either a fixed or a randomly
// chosen browser User-Agent. Bodies are always decoded as EUC-JP, whatever
// charset the server declares. A non-2xx response is returned as a
// *StatusError so the caller can log the code and skip the identifier; no
// retry is attempted.
package fetcher
