// Package domain defines the core value objects of the quota ledger.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Quota: the content-addressed token record and its fixed 113-byte layout
//   - Issue: a batch of denominations and the issuance expansion algorithm
//   - Currency: the binding of a quota to a wallet certificate
//   - ConvertRequest: the body of a conversion request
//   - QuotaState: the issued/recycled lifecycle
//   - Errors: the error taxonomy shared by every layer
//
// Every entity has a canonical encoding (Bytes) and a strict decoder
// (DecodeXxx) that validates lengths and embedded certificates.
package domain
