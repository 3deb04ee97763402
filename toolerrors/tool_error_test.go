package toolerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorfFormatsMessage(t *testing.T) {
	err := Errorf(KindConflict, "account already exists: %s", "ROTH_IRA-1001")
	assert.Equal(t, KindConflict, err.Kind)
	assert.Equal(t, "account already exists: ROTH_IRA-1001", err.Error())
}

func TestNewDefaultsMessageToKind(t *testing.T) {
	err := New(KindInternal, "")
	assert.Equal(t, "internal", err.Error())
}

func TestNewWithCauseChainsAndUnwraps(t *testing.T) {
	root := New(KindNotFound, "client C1 not found")
	wrapped := NewWithCause(KindPreconditionFailed, "eligibility check failed", root)

	assert.True(t, errors.Is(wrapped, root), "errors.Is must see through the Cause chain")

	var asRoot *ToolError
	require := assert.New(t)
	require.True(errors.As(wrapped.Unwrap(), &asRoot))
	require.Equal(KindNotFound, asRoot.Kind)
}

func TestFromErrorDefaultsToInternalForPlainErrors(t *testing.T) {
	plain := errors.New("boom")
	converted := FromError(plain)
	assert.Equal(t, KindInternal, converted.Kind)
	assert.Equal(t, "boom", converted.Message)
}

func TestFromErrorPassesThroughExistingToolError(t *testing.T) {
	original := New(KindTimeout, "llm call timed out")
	converted := FromError(original)
	assert.Same(t, original, converted)
}

func TestNilToolErrorIsSafeToCall(t *testing.T) {
	var e *ToolError
	assert.Equal(t, "", e.Error())
	assert.Nil(t, e.Unwrap())
}
