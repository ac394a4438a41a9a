package engine

import "fmt"

type AppError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

// AccessDeniedError is returned when a permission predicate is false.
// Checked before existence so unauthorized callers learn nothing about
// which tables exist.
func AccessDeniedError() *AppError {
	return &AppError{Code: "ACCESS_DENIED", Status: 403, Message: "Access denied"}
}

func TableNotFoundError() *AppError {
	return &AppError{Code: "TABLE_NOT_FOUND", Status: 404, Message: "Table not found"}
}

func InvalidModeError(mode string) *AppError {
	return &AppError{Code: "INVALID_MODE", Status: 400, Message: "Invalid view mode"}
}

func MalformedPayloadError(err error) *AppError {
	return &AppError{Code: "MALFORMED_PAYLOAD", Status: 400, Message: fmt.Sprintf("Invalid user_data payload: %v", err)}
}

func MissingIDError() *AppError {
	return &AppError{Code: "MISSING_ID", Status: 400, Message: "Missing row id"}
}

// StoreError wraps a failure from the underlying store after rollback.
func StoreError(err error) *AppError {
	return &AppError{Code: "STORE_ERROR", Status: 500, Message: err.Error()}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}
