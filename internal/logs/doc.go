// Package logs reads ledmatrixd log files for the CLI.
//
// Last returns the trailing lines of a file with bounded memory; Follow polls
// for appended lines and restarts from the top when the file is truncated or
// when the ledmatrixd.log pointer moves to a new per-run file.
package logs
