// Package service provides the ledger's domain services.
//
// Services orchestrate domain values, the signed envelope codec and the
// store of record. They hold no per-request state and are safe for
// concurrent use.
//
// This package contains:
//
//   - Ledger: issue, recycle, convert and lookup of quotas
//   - RequesterPolicy: which certificates may request issuance
//   - AuthorityService: creation, rotation and description of the
//     authority identity
//
// Every workflow that changes state runs in a single store transaction.
// A failed workflow leaves the store exactly as it found it.
package service
