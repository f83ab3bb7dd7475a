// Package transport provides HTTP request/response types for the
// verification domain.
package transport

// VerifyRequest is the HTTP request body for a payment check. The
// identity is carried as a decimal string so 64-bit platform IDs survive
// JSON number handling intact.
type VerifyRequest struct {
	Identity string `json:"identity"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
