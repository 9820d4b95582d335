package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

func newTestOracle(t *testing.T, handler http.HandlerFunc) *Oracle {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOracle(Config{BaseURL: srv.URL, Model: "mistral"})
}

func TestNewOracle_Defaults(t *testing.T) {
	o := NewOracle(Config{})
	assert.Equal(t, DefaultModel, o.ModelName())
	assert.Equal(t, DefaultBaseURL, o.baseURL)
	assert.NoError(t, o.Close())
}

func TestOracle_ProposeDraft(t *testing.T) {
	var got chatRequest
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Reset clears state [chunk:m_chunk_0002]."},"done":true}`))
	})

	text, err := o.ProposeDraft(context.Background(), driven.ProposalContext{
		System:    "sys",
		Prompt:    "draft reset rules",
		MaxTokens: 256,
	})

	require.NoError(t, err)
	assert.Equal(t, "Reset clears state [chunk:m_chunk_0002].", text)
	assert.Equal(t, "mistral", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 256, got.Options.NumPredict)
	assert.Equal(t, []chatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "draft reset rules"},
	}, got.Messages)
}

func TestOracle_ProposeDraft_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusNotFound, `model "mistral" not found`, "status 404"},
		{"error field", http.StatusOK, `{"error":"out of memory"}`, "out of memory"},
		{"empty content", http.StatusOK, `{"message":{"role":"assistant","content":"  "},"done":true}`, "empty response"},
		{"bad json", http.StatusOK, `{`, "decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOracle(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := o.ProposeDraft(context.Background(), driven.ProposalContext{Prompt: "p"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOracle_Ping(t *testing.T) {
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	})
	assert.NoError(t, o.Ping(context.Background()))

	down := NewOracle(Config{BaseURL: "http://127.0.0.1:1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, down.Ping(ctx))
}
