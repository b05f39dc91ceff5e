// Package lifecycle puts ledmatrixd into the background and runs the daemon
// body there.
//
// On POSIX systems the process detaches by re-executing itself twice, each
// stage marked through the LEDMATRIX_DETACH_STAGE environment variable. The
// first child becomes a session leader, the second gives leadership up
// again, and a pipe inherited as fd 3 carries any initialization failure back
// to the process the user started. On Windows the body runs under the
// service control manager when started as a service.
package lifecycle
