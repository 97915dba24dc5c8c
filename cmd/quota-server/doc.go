// Command quota-server runs the quota ledger: one issuing authority that
// issues, recycles and converts signed quota tokens over HTTP.
//
// Usage:
//
//	quota-server -config /etc/quota-server/config.yaml
//	quota-server -version
//
// Every config key can be overridden from the environment, e.g.
// QUOTA_STORAGE__DRIVER=postgres or QUOTA_LEDGER__REQUESTERS=02ab..,03cd..
package main
