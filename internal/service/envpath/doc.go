// Package envpath appends a directory to the persistent PATH setting.
//
// The containment check is a plain substring test: a directory that happens
// to be a substring of an unrelated entry is treated as already present.
// Stores decide where the persistent value lives: the setx utility (which
// reads the process environment), the HKCU\Environment registry key on
// Windows, or memory.
package envpath
