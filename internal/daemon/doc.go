// Package daemon owns the long-running ledmatrixd state: the matrix handles,
// the animation orchestrator, and the command dispatcher that the IPC server
// calls for every request.
//
// A flock-based lock in the state directory keeps a second instance from
// driving the same ports. While running, the daemon pings idle modules so
// their firmware does not time out, and on Linux it watches udev for the
// configured serial ports coming and going.
//
// Wire framing lives in the ipc package and the byte-level protocol in the
// matrix package; this package only decides what to send and when.
package daemon
