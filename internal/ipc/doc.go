// Package ipc carries commands from the CLI to the daemon.
//
// Each connection holds exactly one newline-terminated JSON Command. The
// server validates it, hands it to a Handler, writes one JSON Response line
// for queries or failures, and closes the connection. Connections are served
// sequentially, which gives per-side commands a total order.
package ipc
