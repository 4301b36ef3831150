// Package bootstrap runs the provisioning pipeline.
//
// The pipeline is strictly sequential: the VC++ runtime, then MSYS2 (launch,
// then wait until its shell appears, then optional installer cleanup), then
// the recipe's package-manager steps, then the PATH update. The first failure
// stops everything after it and nothing is rolled back. Every step outcome is
// recorded in a provision.Journal.
package bootstrap
