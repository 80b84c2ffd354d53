package submit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_ParsesVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "student@example.com", payload.Email)
		assert.Equal(t, float64(42), payload.Answer)

		_ = json.NewEncoder(w).Encode(Result{Correct: true, URL: "https://quiz.example.com/q/2"})
	}))
	defer server.Close()

	result, err := New().Submit(context.Background(), server.URL, Payload{
		Email:  "student@example.com",
		Secret: "s3cret",
		URL:    "https://quiz.example.com/q/1",
		Answer: 42,
	})
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, "https://quiz.example.com/q/2", result.URL)
}

func TestSubmit_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Result{Correct: false, Reason: "wrong value"})
	}))
	defer server.Close()

	result, err := New().Submit(context.Background(), server.URL, Payload{Answer: "x"})
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.Equal(t, "wrong value", result.Reason)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSubmit_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := New().Submit(context.Background(), server.URL, Payload{Answer: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmit_RejectsOversizedPayload(t *testing.T) {
	_, err := New().Submit(context.Background(), "http://unused.example.com", Payload{
		Answer: strings.Repeat("a", MaxPayloadSize),
	})
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}
