// Package main hosts the ledmatrix CLI and the ledmatrixd daemon entrypoint.
//
// Device subcommands turn one invocation into exactly one IPC command for the
// daemon. The hidden "daemon" subcommand runs the daemon itself; start, stop,
// restart, and status manage it from the outside.
package main
