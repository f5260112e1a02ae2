package auth_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/waabox/mclogin/internal/auth"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := &auth.Error{Kind: auth.KindDenied, Op: "poll", Code: "authorization_declined"}
	wrapped := fmt.Errorf("logging in: %w", err)

	assert.True(t, errors.Is(wrapped, auth.ErrDenied))
	assert.False(t, errors.Is(wrapped, auth.ErrTimeout))
	assert.Equal(t, auth.KindDenied, auth.KindOf(wrapped))
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := &auth.Error{Kind: auth.KindNetwork, Op: "xbl", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, auth.ErrNetwork)
}

func TestError_MessageIncludesOpAndStatus(t *testing.T) {
	err := &auth.Error{Kind: auth.KindAuthorization, Op: "xsts", Status: 401, Message: "rejected by Xbox Live"}
	msg := err.Error()

	for _, want := range []string{"xsts", "authorization error", "rejected by Xbox Live", "401"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, auth.KindUnknown, auth.KindOf(errors.New("boom")))
	assert.Equal(t, auth.KindUnknown, auth.KindOf(nil))
}

func TestIsRetryable_OnlyNetwork(t *testing.T) {
	cases := map[auth.ErrorKind]bool{
		auth.KindNetwork:             true,
		auth.KindConfiguration:       false,
		auth.KindMalformedResponse:   false,
		auth.KindAuthorization:       false,
		auth.KindDenied:              false,
		auth.KindTimeout:             false,
		auth.KindProfileNotFound:     false,
		auth.KindCancelled:           false,
		auth.KindInvalidRefreshToken: false,
	}
	for kind, want := range cases {
		t.Run(kind.String(), func(t *testing.T) {
			assert.Equal(t, want, auth.IsRetryable(&auth.Error{Kind: kind}))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, auth.UserMessage(nil))
	assert.Contains(t, auth.UserMessage(auth.ErrProfileNotFound), "does not own Minecraft")
	assert.Contains(t, auth.UserMessage(auth.ErrTimeout), "expired")
	assert.Contains(t, auth.UserMessage(auth.ErrDenied), "declined")
	assert.Contains(t, auth.UserMessage(&auth.Error{Kind: auth.KindAuthorization, Message: "child account"}), "child account")
	assert.Equal(t, "plain", auth.UserMessage(errors.New("plain")))
}
