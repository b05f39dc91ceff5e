// Package config loads, normalizes, and validates ledmatrix configuration.
//
// It supplies platform defaults, expands user paths (tilde shortcuts, but not
// Linux abstract socket names), and reads the TOML file that names the
// attached matrices. Both the daemon and the CLI obtain settings here so the
// socket path they agree on is computed in one place.
package config
