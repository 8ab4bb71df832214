package thirdparty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPusher(secret string, retries int) *Pusher {
	p := NewPusher(nil, secret, retries)
	p.Backoff = []time.Duration{time.Millisecond}
	return p
}

func TestPusher_SignsRequest(t *testing.T) {
	var verified atomic.Bool
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := VerifyRequest("s3cret", r)
		verified.Store(ok)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	code, err := fastPusher("s3cret", 0).SendJSON(context.Background(), srv.URL+"/hook", map[string]any{"pm25": 15.0})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, verified.Load())
	assert.Equal(t, 15.0, got["pm25"])
}

func TestPusher_RetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	code, err := fastPusher("k", 3).SendJSON(context.Background(), srv.URL, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, code)
	assert.EqualValues(t, 3, calls.Load())
}

func TestPusher_NoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	code, err := fastPusher("k", 3).SendJSON(context.Background(), srv.URL, map[string]any{})
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPusher_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	code, err := fastPusher("k", 1).SendJSON(context.Background(), srv.URL, map[string]any{})
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestVerifyRequest_BadSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := VerifyRequest("other", r); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	code, err := fastPusher("k", 0).SendJSON(context.Background(), srv.URL, map[string]any{})
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, code)
}
