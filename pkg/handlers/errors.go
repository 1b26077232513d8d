package handlers

import (
	"errors"
	"net/http"

	apperrors "cfdiag-api/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StatusFor maps an application error code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeIncompleteSubmission, apperrors.CodeUnknownSymptom, apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an ErrorResponse. Server-side failures keep
// their cause out of the body; it is recorded on the gin context instead.
func respondError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	status := StatusFor(code)
	_ = c.Error(err)

	msg := err.Error()
	var appErr *apperrors.AppError
	if status >= http.StatusInternalServerError && errors.As(err, &appErr) {
		msg = appErr.Message
	} else if status >= http.StatusInternalServerError {
		msg = "internal server error"
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   msg,
		Code:    code,
		Details: apperrors.GetDetails(err),
	})
}

// bindingError converts a gin binding failure into INVALID_INPUT.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Namespace()+":"+fe.Tag())
		}
		return apperrors.InvalidInput("request validation failed").WithDetail("fields", fields)
	}
	return apperrors.InvalidInput("malformed request body: " + err.Error())
}
