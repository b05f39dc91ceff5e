// Package matrix implements the LED matrix module wire protocol.
//
// Every request is the two magic bytes 0x32 0xAC, a command byte, and
// command-specific parameters. Queries read a fixed-size response. Device
// wraps one open connection; Matrix is the long-lived handle that opens a
// fresh serial connection per Session.
package matrix
