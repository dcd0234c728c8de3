package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"sigcalc/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrapClassifiesDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"channel mismatch", core.NewChannelMismatchError(2, 1), CodeConfigInvalid},
		{"negative mu", core.ErrNegativeStrength, CodeInvalidInput},
		{"non-convergence", core.NewNonConvergenceError("root", 3), CodeFitFailed},
		{"not found", core.ErrCalculationNotFound, CodeNotFound},
		{"plain", fmt.Errorf("boom"), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := Wrap(tt.err, "context")
			assert.Equal(t, tt.code, GetCode(wrapped))
			assert.True(t, stderrors.Is(wrapped, tt.err))
		})
	}
}

func TestWrapKeepsAppErrorCode(t *testing.T) {
	base := IOError("cannot open experiment file", fmt.Errorf("no such file"))
	wrapped := Wrapf(base, "reading %s", "exp.txt")

	assert.Equal(t, CodeIOError, GetCode(wrapped))
	assert.True(t, IsAppError(wrapped))
	assert.Contains(t, wrapped.Error(), "reading exp.txt")
}

func TestNilPassThrough(t *testing.T) {
	assert.Nil(t, Wrap(nil, "x"))
	assert.Nil(t, Wrapf(nil, "x %d", 1))
	assert.Nil(t, WithCode(CodeIOError, nil))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestWithCodeOverrides(t *testing.T) {
	err := WithCode(CodeDatabaseError, InvalidInput("bad row"))
	assert.Equal(t, CodeDatabaseError, GetCode(err))
}
