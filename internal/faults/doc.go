// Package faults defines the daemon's error taxonomy.
//
// Every failure that crosses a package boundary wraps one of the sentinel
// markers so the IPC layer can report a stable kind and the Windows service
// wrapper can translate it into an exit code.
package faults
