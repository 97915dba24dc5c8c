// Package tlsroots manages TLS material for the server and the CLI.
//
//   - roots.go: trust pools for clients (system roots plus extra CA files)
//   - watcher.go: the server key pair, reloaded when the files change
package tlsroots
