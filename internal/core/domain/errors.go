package domain

import (
	"errors"
	"fmt"
)

// ErrorKind groups error codes into the categories callers branch on.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindKeyMaterial
	KindDecode
	KindSignature
	KindNotFound
	KindConflict
	KindPersistence
	KindArgument
)

// String returns the kind name used in logs and metric labels.
func (k ErrorKind) String() string {
	switch k {
	case KindKeyMaterial:
		return "key_material"
	case KindDecode:
		return "decode"
	case KindSignature:
		return "signature"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	case KindArgument:
		return "argument"
	default:
		return "internal"
	}
}

// DomainError represents a ledger error with a stable, structured error code.
//
// Code and Message are safe to return to untrusted callers. Details and Cause
// carry diagnostics and are meant for internal logs only.
type DomainError struct {
	Code    string    // Error code (e.g., "QL-QUOTA-4040")
	Kind    ErrorKind // Taxonomy bucket
	Message string    // Human-readable message
	Details string    // Optional additional details
	Cause   error     // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code, kind and message.
func NewDomainError(code string, kind ErrorKind, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// KindOf returns the taxonomy bucket of err. Errors that are not
// DomainErrors are internal.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// ============================================================================
// Key material errors (KEY)
// ============================================================================

var (
	// ErrKeyMaterialMissing indicates no authority identity has been persisted.
	ErrKeyMaterialMissing = NewDomainError("QL-KEY-5030", KindKeyMaterial, "authority identity missing")

	// ErrKeyMaterialCorrupt indicates the persisted identity does not parse.
	ErrKeyMaterialCorrupt = NewDomainError("QL-KEY-5000", KindKeyMaterial, "authority identity corrupt")

	// ErrInvalidSeed indicates a seed that is not exactly 32 bytes or cannot derive a key.
	ErrInvalidSeed = NewDomainError("QL-KEY-4001", KindArgument, "invalid identity seed")
)

// ============================================================================
// Codec errors (CODEC)
// ============================================================================

var (
	// ErrLengthMismatch indicates an input that is not the entity's fixed
	// length, or not a multiple of its record size.
	ErrLengthMismatch = NewDomainError("QL-CODEC-4000", KindDecode, "length mismatch")

	// ErrFieldInvalid indicates a sub-field (e.g. an embedded certificate)
	// that does not itself decode.
	ErrFieldInvalid = NewDomainError("QL-CODEC-4001", KindDecode, "invalid field")

	// ErrEncodingInvalid indicates malformed hexadecimal input.
	ErrEncodingInvalid = NewDomainError("QL-CODEC-4002", KindDecode, "invalid hex encoding")

	// ErrMessageType indicates an envelope carrying an unexpected discriminant.
	ErrMessageType = NewDomainError("QL-CODEC-4003", KindDecode, "unexpected message type")
)

// ============================================================================
// Signature errors (SIG)
// ============================================================================

var (
	// ErrSignatureInvalid indicates an envelope whose signature does not verify.
	ErrSignatureInvalid = NewDomainError("QL-SIG-4010", KindSignature, "signature verification failed")

	// ErrQuotaForged indicates a verified envelope that does not match the
	// record of truth, or whose signer is not the quota issuer.
	ErrQuotaForged = NewDomainError("QL-SIG-4011", KindSignature, "quota does not match issued record")

	// ErrRequesterNotAuthorized indicates a correctly signed request from a
	// requester that may not mint or convert.
	ErrRequesterNotAuthorized = NewDomainError("QL-SIG-4030", KindSignature, "requester not authorized")
)

// ============================================================================
// Quota lifecycle errors (QUOTA)
// ============================================================================

var (
	// ErrQuotaNotFound indicates the referenced quota id has no stored record.
	ErrQuotaNotFound = NewDomainError("QL-QUOTA-4040", KindNotFound, "quota not found")

	// ErrQuotaRecycled indicates the quota has already been recycled.
	ErrQuotaRecycled = NewDomainError("QL-QUOTA-4090", KindConflict, "quota already recycled")

	// ErrValueNotConserved indicates a conversion whose outputs do not sum to its inputs.
	ErrValueNotConserved = NewDomainError("QL-QUOTA-4091", KindConflict, "conversion does not conserve value")

	// ErrConcurrentUpdate indicates a concurrent workflow touched the same quota.
	ErrConcurrentUpdate = NewDomainError("QL-QUOTA-4092", KindConflict, "concurrent update, please retry")

	// ErrQuotaDuplicate indicates a minted quota id already exists.
	ErrQuotaDuplicate = NewDomainError("QL-QUOTA-4093", KindConflict, "quota id conflict")

	// ErrDuplicateInput indicates the same quota named twice in one request.
	ErrDuplicateInput = NewDomainError("QL-QUOTA-4094", KindConflict, "quota listed more than once")
)

// ============================================================================
// System errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("QL-SYS-5000", KindInternal, "internal server error")

	// ErrPersistence indicates a store operation failed.
	ErrPersistence = NewDomainError("QL-SYS-5001", KindPersistence, "storage error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("QL-SYS-4000", KindArgument, "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("QL-SYS-4290", KindArgument, "too many requests")

	// ErrUnauthorized indicates a missing or wrong admin token.
	ErrUnauthorized = NewDomainError("QL-SYS-4010", KindSignature, "authentication required")

	// ErrRouteNotFound indicates an unknown API path.
	ErrRouteNotFound = NewDomainError("QL-SYS-4040", KindNotFound, "route not found")

	// ErrMethodNotAllowed indicates a known path called with the wrong method.
	ErrMethodNotAllowed = NewDomainError("QL-SYS-4050", KindArgument, "method not allowed")
)

// ============================================================================
// Argument errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("QL-ARG-1001", KindArgument, "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("QL-ARG-1002", KindArgument, "missing required argument")

	// ErrValueOverflow indicates a face value total that does not fit in 64 bits.
	ErrValueOverflow = NewDomainError("QL-ARG-1003", KindArgument, "value overflow")

	// ErrBatchTooLarge indicates a request that would mint more tokens than allowed.
	ErrBatchTooLarge = NewDomainError("QL-ARG-1004", KindArgument, "batch too large")
)
