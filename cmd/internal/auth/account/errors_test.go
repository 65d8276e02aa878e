package account

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKindAndCode(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", &Error{Op: "account.Login", Kind: KindAuthentication, Code: CodeWrongProvider, Msg: "Please login with google", Err: cause})

	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, ErrWrongProvider)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindAuthentication, KindOf(err))
}

func TestKindOf_Unknown(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "unknown", KindOf(nil).String())
}

func TestError_Message(t *testing.T) {
	e := &Error{Op: "account.Refresh", Kind: KindAuthentication, Msg: "Invalid refresh token"}
	assert.Equal(t, "account.Refresh: authentication: Invalid refresh token", e.Error())
}
