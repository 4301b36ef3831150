// Package version exposes build metadata of the gtk-bootstrap binary.
//
// Version, Commit and BuildTime are injected with -ldflags at release time;
// local builds report the defaults below.
package version
