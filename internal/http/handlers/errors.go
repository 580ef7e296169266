package handlers

// Error codes carried in ErrorResponse.Code. Clients branch on these rather
// than on message text.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Demo API.
	ErrCodeListFailed  = "list_failed"
	ErrCodeResetFailed = "reset_failed"
)
