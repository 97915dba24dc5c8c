// Package cmap provides a string-keyed map split into independently locked
// shards, for hot paths where one mutex would serialize every request.
package cmap
