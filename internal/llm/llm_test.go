package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaStream(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"{\"resp"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"onse\":\"hi\"}"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.1")
	out, err := Generate(context.Background(), c, Request{
		Messages: []Message{{Role: RoleUser, Content: "make a page"}},
		Sampling: Sampling{Temperature: 0.8, TopP: 0.3, JSONMode: true},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"response":"hi"}`, out)

	assert.Equal(t, "llama3.1", got.Model)
	assert.True(t, got.Stream)
	assert.Equal(t, "json", got.Format)
	assert.InDelta(t, 0.8, got.Options["temperature"], 1e-9)
	assert.InDelta(t, 0.3, got.Options["top_p"], 1e-9)
}

func TestOllamaStream_ErrorLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"model not loaded"}`)
	}))
	defer srv.Close()

	_, err := Generate(context.Background(), NewOllamaClient(srv.URL, "m"), Request{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIStream(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL+"/", "gpt-test", "sk-test")
	s, err := c.Stream(context.Background(), Request{Sampling: Sampling{Temperature: 1, TopP: 0.4, JSONMode: true}})
	require.NoError(t, err)
	defer s.Close()

	var chunks []string
	for {
		chunk, done, err := s.Next()
		require.NoError(t, err)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if done {
			break
		}
	}
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Equal(t, 0.4, got.TopP)
}

func TestStatusErrors(t *testing.T) {
	for status, want := range map[int]error{
		http.StatusUnauthorized:       ErrUnauthorized,
		http.StatusTooManyRequests:    ErrRateLimited,
		http.StatusServiceUnavailable: ErrUnavailable,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", status)
		}))
		_, err := NewOpenAIClient(srv.URL, "m", "").Stream(context.Background(), Request{})
		assert.ErrorIs(t, err, want, "status %d", status)
		srv.Close()
	}
}

func TestStreamError_Refused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewOllamaClient(url, "m").Stream(context.Background(), Request{})
	var serr *StreamError
	require.True(t, errors.As(err, &serr))
	assert.False(t, serr.Timeout())
}

func TestStreamError_Timeout(t *testing.T) {
	err := &StreamError{Provider: "x", Err: fmt.Errorf("read: %w", context.DeadlineExceeded)}
	assert.True(t, err.Timeout())
}

func TestReplay(t *testing.T) {
	r := NewReplay("first output", "second")
	r.ChunkSize = 5

	s, err := r.Stream(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "a"}}})
	require.NoError(t, err)
	c1, _, _ := s.Next()
	assert.Equal(t, "first", c1)

	out, err := Generate(context.Background(), r, Request{})
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	out, err = Generate(context.Background(), r, Request{})
	require.NoError(t, err)
	assert.Equal(t, "second", out, "last recording repeats")

	require.Len(t, r.Requests(), 3)
	assert.Equal(t, "a", r.Requests()[0].Messages[0].Content)
}

func TestReplay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := NewReplay("abc").Stream(ctx, Request{})
	require.NoError(t, err)
	cancel()
	_, _, err = s.Next()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewGenerator(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01.json"), []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02.json"), []byte("two"), 0o644))

	g, err := NewGenerator("replay", dir, "", "")
	require.NoError(t, err)
	out, err := Generate(context.Background(), g, Request{})
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	g, err = NewGenerator("ollama", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "ollama/llama3.1", g.Name())

	_, err = NewGenerator("bard", "", "", "")
	assert.Error(t, err)
}

func TestSampling_Override(t *testing.T) {
	base := Sampling{Temperature: 1, TopP: 0.4}
	temp, topP := 0.3, 0.9

	assert.Equal(t, base, base.Override(nil, nil, false))
	assert.Equal(t, Sampling{Temperature: 0.3, TopP: 0.4}, base.Override(&temp, nil, false))
	assert.Equal(t, Sampling{Temperature: 1, TopP: 0.9, JSONMode: true}, base.Override(nil, &topP, true))
	assert.True(t, Sampling{JSONMode: true}.Override(nil, nil, false).JSONMode)
}

func TestSampling_Validate(t *testing.T) {
	assert.NoError(t, Sampling{Temperature: 0, TopP: 1}.Validate())
	assert.NoError(t, Sampling{Temperature: 2, TopP: 0.1}.Validate())
	assert.Error(t, Sampling{Temperature: -0.1, TopP: 0.4}.Validate())
	assert.Error(t, Sampling{Temperature: 2.5, TopP: 0.4}.Validate())
	assert.Error(t, Sampling{Temperature: 1, TopP: 0}.Validate())
	assert.Error(t, Sampling{Temperature: 1, TopP: 1.2}.Validate())
}
