package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := External(cause, "index")

	assert.Equal(t, "EXTERNAL_SERVICE_ERROR: index call failed (caused by: connection refused)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "VALIDATION_ERROR: empty", Validation("empty").Error())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", Data("missing column"))
	assert.Equal(t, KindData, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestIs_WalksNestedKinds(t *testing.T) {
	inner := Degenerate("zero variance")
	outer := Wrap(inner, KindExternal, "analysis")

	assert.True(t, Is(outer, KindExternal))
	assert.True(t, Is(outer, KindDegenerate))
	assert.False(t, Is(outer, KindValidation))
	assert.False(t, Is(errors.New("plain"), KindInternal))
}

func TestFatal(t *testing.T) {
	assert.True(t, IsFatal(fmt.Errorf("startup: %w", Data("bad csv"))))
	assert.False(t, IsFatal(External(errors.New("x"), "llm")))
	assert.True(t, Data("x").Fatal())
	assert.False(t, New(KindDivisionByZero, "x").Fatal())
}

func TestError_JSON(t *testing.T) {
	data, err := json.Marshal(Wrap(errors.New("secret"), KindValidation, "bad limit"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"VALIDATION_ERROR","message":"bad limit"}`, string(data))
}
