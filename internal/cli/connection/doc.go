// Package connection is the quota-cli HTTP client for the ledger API.
package connection
