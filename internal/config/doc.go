// Package config loads the run configuration once at startup.
//
// Values come, in increasing precedence, from built-in defaults, an optional
// config.yaml, a .env file and KEIBA_* environment variables. The resulting
// Config is treated as read-only and handed explicitly to every component;
// nothing in the pipeline reads configuration from package state.
package config
