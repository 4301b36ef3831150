// Package common holds helpers shared by several services.
//
// It detects the current system actor (hostname/username) for the run
// journal and guards against two bootstrap processes running at once.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
