// Package fetch downloads installers.
//
// Two strategies exist: a static URL saved into the temporary directory and
// skipped when the file is already there, and a release lookup that asks the
// releases API for the latest release, picks the first matching asset and
// always downloads it into the working directory. Downloads are buffered in
// memory and written verbatim; no checksum is verified.
package fetch
