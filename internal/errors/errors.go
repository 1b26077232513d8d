package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code, so callers can
// match against the sentinel values below with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &AppError{Code: e.Code, Message: e.Message, Details: details, Cause: e.Cause}
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Details: appErr.Details,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// WithCode attaches a code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the error code if err wraps an AppError, otherwise CodeInternalError
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// GetDetails returns the details of a wrapped AppError, or nil
func GetDetails(err error) map[string]interface{} {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

// Predefined error codes
const (
	CodeNotFound             = "NOT_FOUND"
	CodeIncompleteSubmission = "INCOMPLETE_SUBMISSION"
	CodeUnknownSymptom       = "UNKNOWN_SYMPTOM"
	CodeNoTextTemplate       = "NO_TEXT_TEMPLATE"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeConfigInvalid        = "CONFIG_INVALID"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// Sentinels for errors.Is matching.
var (
	ErrNotFound             = New(CodeNotFound, "not found")
	ErrIncompleteSubmission = New(CodeIncompleteSubmission, "incomplete submission")
	ErrUnknownSymptom       = New(CodeUnknownSymptom, "unknown symptom")
	ErrNoTextTemplate       = New(CodeNoTextTemplate, "no text template")
	ErrStoreUnavailable     = New(CodeStoreUnavailable, "store unavailable")
	ErrInvalidInput         = New(CodeInvalidInput, "invalid input")
	ErrConfigInvalid        = New(CodeConfigInvalid, "invalid configuration")
)

// Common error constructors
func NotFound(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
		Details: map[string]interface{}{"resource": resource, "id": id},
	}
}

func IncompleteSubmission(missing []string) *AppError {
	return &AppError{
		Code:    CodeIncompleteSubmission,
		Message: fmt.Sprintf("missing answers for %d required symptom(s)", len(missing)),
		Details: map[string]interface{}{"missingSymptoms": missing},
	}
}

func UnknownSymptom(symptomID int, hypothesisCode string) *AppError {
	return &AppError{
		Code:    CodeUnknownSymptom,
		Message: fmt.Sprintf("symptom %d is not part of hypothesis %s", symptomID, hypothesisCode),
		Details: map[string]interface{}{"symptomId": symptomID, "hypothesis": hypothesisCode},
	}
}

func NoTextTemplate(hypothesisCode, level string) *AppError {
	return &AppError{
		Code:    CodeNoTextTemplate,
		Message: fmt.Sprintf("no diagnosis template for hypothesis %s at level %q", hypothesisCode, level),
		Details: map[string]interface{}{"hypothesis": hypothesisCode, "level": level},
	}
}

func StoreUnavailable(op string, cause error) *AppError {
	return &AppError{
		Code:    CodeStoreUnavailable,
		Message: fmt.Sprintf("result store %s failed", op),
		Cause:   cause,
	}
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}
