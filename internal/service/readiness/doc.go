// Package readiness polls for an artifact that an asynchronous installation
// is expected to produce. It stands in for a completion notification the
// installer does not provide.
package readiness
