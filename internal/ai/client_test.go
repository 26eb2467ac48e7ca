package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testClient(key, url string) *Client {
	c := NewClient(key)
	c.baseURL = url
	return c
}

func TestClientConfigured(t *testing.T) {
	assert.False(t, NewClient("").Configured())
	assert.True(t, NewClient("sk-test").Configured())

	var nilClient *Client
	assert.False(t, nilClient.Configured())
}

func TestClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"generated text"}}]}`))
	}))
	defer srv.Close()

	c := testClient("sk-test", srv.URL)
	text, err := c.Generate(context.Background(), "say something")
	assert.NoError(t, err)
	assert.Equal(t, "generated text", text)
}

func TestClientGenerateNotConfigured(t *testing.T) {
	c := NewClient("")
	_, err := c.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestClientGenerateClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth"}}`))
	}))
	defer srv.Close()

	c := testClient("sk-bad", srv.URL)
	_, err := c.Generate(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
	// 4xx other than 429 must not be retried.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientGenerateRetriesServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"second try"}}]}`))
	}))
	defer srv.Close()

	c := testClient("sk-test", srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	text, err := c.Generate(ctx, "prompt")
	assert.NoError(t, err)
	assert.Equal(t, "second try", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := testClient("sk-test", srv.URL)
	_, err := c.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}
