package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siteverify(t *testing.T, success bool) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("secret"))
		assert.Equal(t, "203.0.113.7", r.PostForm.Get("remoteip"))
		w.Header().Set("Content-Type", "application/json")
		if success {
			w.Write([]byte(`{"success":true}`))
			return
		}
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestDisabledVerifierAcceptsAnything(t *testing.T) {
	v := NewTurnstileVerifier("", "", false, nil, nil)
	assert.False(t, v.Enabled())
	assert.NoError(t, v.Verify(context.Background(), "", ""))
}

func TestVerifierRequiresToken(t *testing.T) {
	v := NewTurnstileVerifier("secret", "", true, nil, nil)
	assert.ErrorIs(t, v.Verify(context.Background(), "", "203.0.113.7"), ErrTokenRequired)
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	srv, calls := siteverify(t, true)
	v := NewTurnstileVerifier("secret", "", true, srv.Client(), nil)
	v.endpoint = srv.URL

	assert.NoError(t, v.Verify(context.Background(), "tok", "203.0.113.7"))
	assert.Equal(t, 1, *calls)
}

func TestVerifierRejectsInvalidToken(t *testing.T) {
	srv, _ := siteverify(t, false)
	v := NewTurnstileVerifier("secret", "", true, srv.Client(), nil)
	v.endpoint = srv.URL

	assert.ErrorIs(t, v.Verify(context.Background(), "tok", "203.0.113.7"), ErrTokenNotValid)
}

func TestTestTokenOnlyOutsideRelease(t *testing.T) {
	srv, calls := siteverify(t, false)

	debug := NewTurnstileVerifier("secret", "XXXX.DUMMY.TOKEN", false, srv.Client(), nil)
	debug.endpoint = srv.URL
	assert.NoError(t, debug.Verify(context.Background(), "XXXX.DUMMY.TOKEN", "203.0.113.7"))
	assert.Zero(t, *calls)

	release := NewTurnstileVerifier("secret", "XXXX.DUMMY.TOKEN", true, srv.Client(), nil)
	release.endpoint = srv.URL
	assert.ErrorIs(t, release.Verify(context.Background(), "XXXX.DUMMY.TOKEN", "203.0.113.7"), ErrTokenNotValid)
}
