// Package system abstracts the operating-system calls made by the bootstrap:
// filesystem probes and writes, environment lookups, and child processes.
//
// Services depend on the System interface so tests can substitute
// systemtest.Fake instead of touching the real machine.
package system
