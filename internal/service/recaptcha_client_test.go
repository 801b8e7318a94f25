package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func siteverifyServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRecaptchaVerify(t *testing.T) {
	srv := siteverifyServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "shh", r.PostForm.Get("secret"))
		assert.Equal(t, "203.0.113.9", r.PostForm.Get("remoteip"))
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good" {
			w.Write([]byte(`{"success": true, "hostname": "localhost"}`))
			return
		}
		w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	})

	c := NewRecaptchaClient("shh", srv.URL, true, zap.NewNop())

	ok, err := c.Verify(context.Background(), "good", "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Verify(context.Background(), "bad", "203.0.113.9")
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.False(t, ok)
}

func TestRecaptchaSkipped(t *testing.T) {
	var calls atomic.Int32
	srv := siteverifyServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	for name, c := range map[string]*RecaptchaClient{
		"no secret":    NewRecaptchaClient("", srv.URL, true, zap.NewNop()),
		"not enforced": NewRecaptchaClient("shh", srv.URL, false, zap.NewNop()),
	} {
		t.Run(name, func(t *testing.T) {
			ok, err := c.Verify(context.Background(), "anything", "")
			require.NoError(t, err)
			assert.False(t, ok, "a skipped check is not a verification")
		})
	}
	assert.Zero(t, calls.Load())
}

func TestRecaptchaRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := siteverifyServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"success": true}`))
	})

	c := NewRecaptchaClient("shh", srv.URL, true, zap.NewNop())
	ok, err := c.Verify(context.Background(), "good", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRecaptchaClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := siteverifyServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	c := NewRecaptchaClient("shh", srv.URL, true, zap.NewNop())
	_, err := c.Verify(context.Background(), "good", "")
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, int32(1), calls.Load())
}
