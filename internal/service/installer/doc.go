// Package installer runs installers and toolchain commands as child
// processes and classifies their outcome into launch failures and exit
// failures.
package installer
