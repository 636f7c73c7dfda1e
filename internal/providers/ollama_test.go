package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveOllamaModelDefault(t *testing.T) {
	t.Setenv("RESUMEFLOW_OLLAMA_MODEL", "")
	if got := resolveOllamaModel(""); got != "llama3.2-vision" {
		t.Fatalf("expected default llama3.2-vision, got %q", got)
	}
	if got := resolveOllamaModel("minicpm-v:8b"); got != "minicpm-v:8b" {
		t.Fatalf("expected direct model, got %q", got)
	}
}

func TestOllamaExtractImage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"# Ana"},"done":true,"done_reason":"stop"}`))
	}))
	defer srv.Close()
	t.Setenv("RESUMEFLOW_OLLAMA_BASE_URL", srv.URL)

	p := NewOllamaProvider("", 5*time.Second)
	resp, info, err := p.ExtractImage(context.Background(), VisionRequest{Prompt: "read", ImageData: []byte{1, 2, 3}})
	require.NoError(t, err)
	require.Equal(t, "# Ana", resp.Text)
	require.True(t, resp.Complete)
	require.Equal(t, "ollama", info.Name)

	msgs := got["messages"].([]any)
	images := msgs[0].(map[string]any)["images"].([]any)
	require.Equal(t, "AQID", images[0])
}

func TestOllamaLengthStopIsIncomplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":"partial"},"done":true,"done_reason":"length"}`))
	}))
	defer srv.Close()
	t.Setenv("RESUMEFLOW_OLLAMA_BASE_URL", srv.URL)

	resp, _, err := NewOllamaProvider("", time.Second).ExtractImage(context.Background(), VisionRequest{ImageData: []byte{1}})
	require.NoError(t, err)
	require.False(t, resp.Complete)
}

func TestOllamaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()
	t.Setenv("RESUMEFLOW_OLLAMA_BASE_URL", srv.URL)

	_, _, err := NewOllamaProvider("", time.Second).GenerateStructured(context.Background(), StructuredRequest{Prompt: "x"})
	require.ErrorContains(t, err, "ollama chat error 404")
}
