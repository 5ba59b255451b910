package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, timeout time.Duration) *Client {
	c := NewClient(Config{BaseURL: url, APIKey: "test-key", Timeout: timeout})
	c.now = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }
	return c
}

func TestComplete_Success(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Why did the tomato blush?  "}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second)
	reply, err := c.Complete(context.Background(), Request{
		Turns: []Turn{
			{Role: RoleUser, Text: "hello"},
			{Role: RoleAssistant, Text: "Hello! How are you?"},
		},
		Text:    "tell me a joke",
		Profile: "Name: Margaret",
	})
	require.NoError(t, err)
	assert.Equal(t, "Why did the tomato blush?", reply)

	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 350, got.MaxTokens)
	assert.InDelta(t, 0.6, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 5)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "Name: Margaret")
	assert.Contains(t, got.Messages[1].Content, "Monday, March 2, 2026")
	assert.Equal(t, chatMessage{Role: "assistant", Content: "Hello! How are you?"}, got.Messages[3])
	assert.Equal(t, chatMessage{Role: "user", Content: "tell me a joke"}, got.Messages[4])
}

func TestNewClient_ZeroTemperature(t *testing.T) {
	zero := 0.0
	c := NewClient(Config{Temperature: &zero})
	assert.Zero(t, c.temperature)

	assert.InDelta(t, DefaultTemperature, NewClient(Config{}).temperature, 1e-9)
}

func TestComplete_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).Complete(context.Background(), Request{Text: "hi"})
	var ge *Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, KindStatus, ge.Kind)
	assert.Equal(t, http.StatusTooManyRequests, ge.Status)
}

func TestComplete_Malformed(t *testing.T) {
	cases := map[string]string{
		"no choices":    `{"choices":[]}`,
		"empty content": `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`,
		"not json":      `<html>bad gateway</html>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, time.Second).Complete(context.Background(), Request{Text: "hi"})
			var ge *Error
			require.True(t, errors.As(err, &ge), "got %v", err)
			assert.Equal(t, KindMalformed, ge.Kind)
		})
	}
}

func TestComplete_RepairsTruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Drink some water."`))
	}))
	defer srv.Close()

	reply, err := newTestClient(srv.URL, time.Second).Complete(context.Background(), Request{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Drink some water.", reply)
}

func TestComplete_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(srv.URL, 5*time.Second).Complete(ctx, Request{Text: "hi"})
	var ge *Error
	require.True(t, errors.As(err, &ge), "got %v", err)
	assert.Equal(t, KindTimeout, ge.Kind)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestComplete_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, time.Second).Complete(context.Background(), Request{Text: "hi"})
	var ge *Error
	require.True(t, errors.As(err, &ge), "got %v", err)
	assert.Equal(t, KindNetwork, ge.Kind)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Complete(context.Background(), Request{Text: "hi"})
	var ge *Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, KindUnavailable, ge.Kind)
	assert.Equal(t, "gateway unavailable", err.Error())
}
