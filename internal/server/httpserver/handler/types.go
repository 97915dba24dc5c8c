package handler

import (
	"time"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// IssueQuotaRequest is the request body for POST /api/quota.
type IssueQuotaRequest struct {
	IssueQuotaRequest string `json:"issue_quota_request"`
}

// ConvertQuotaRequest is the request body for PUT /api/quota.
type ConvertQuotaRequest struct {
	ConvertQuotaRequest string `json:"convert_quota_request"`
}

// RotateAuthorityRequest is the request body for PUT /api/admin/meta.
type RotateAuthorityRequest struct {
	Seed string `json:"seed"`
}

// HealthResponse is the body of GET /health and GET /ready.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
	Error   string `json:"error,omitempty"`
}
