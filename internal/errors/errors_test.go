package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := NotFound("result", "abc")

	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.False(t, stderrors.Is(err, ErrStoreUnavailable))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, stderrors.Is(wrapped, ErrNotFound))
	assert.Equal(t, CodeNotFound, GetCode(wrapped))
}

func TestWrapKeepsCode(t *testing.T) {
	err := Wrap(IncompleteSubmission([]string{"G01"}), "evaluate")

	assert.Equal(t, CodeIncompleteSubmission, GetCode(err))
	assert.Equal(t, []string{"G01"}, GetDetails(err)["missingSymptoms"])
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestWrapPlainError(t *testing.T) {
	err := Wrap(stderrors.New("boom"), "context")

	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.EqualError(t, err, "context: boom")
}

func TestStoreUnavailableUnwraps(t *testing.T) {
	cause := stderrors.New("disk full")
	err := StoreUnavailable("create", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, ErrStoreUnavailable))
}

func TestWithDetailCopies(t *testing.T) {
	base := InvalidInput("bad value")
	withField := base.WithDetail("field", "cfUser")

	assert.Nil(t, base.Details)
	assert.Equal(t, "cfUser", withField.Details["field"])
	assert.Equal(t, CodeInvalidInput, withField.Code)
}

func TestGetCodeUnknown(t *testing.T) {
	assert.Equal(t, CodeInternalError, GetCode(stderrors.New("x")))
	assert.Nil(t, GetDetails(stderrors.New("x")))
}
