package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"sampled/pkg/sample"
)

func newUpstreamServer(t *testing.T, status int, errBody string) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var seen []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content-type %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		seen = append(seen, body)
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(errBody))
			return
		}
		n := int(body["n"].(float64))
		choices := make([]map[string]any, n)
		for i := range choices {
			choices[i] = map[string]any{
				"index":   i,
				"message": map[string]any{"role": "assistant", "content": fmt.Sprintf("completion %d", i)},
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"choices": choices})
	}))
	return srv, &seen
}

func TestClientQuery(t *testing.T) {
	srv, seen := newUpstreamServer(t, http.StatusOK, "")
	defer srv.Close()
	c := NewClient(srv.URL, "test-key", "test-model", 0.7)
	out, err := c.Query(context.Background(), "hello", 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 completions, got %d", len(out))
	}
	if out[0] != "completion 0" || out[2] != "completion 2" {
		t.Fatalf("unexpected completions: %v", out)
	}
	req := (*seen)[0]
	if req["model"] != "test-model" || req["temperature"] != 0.7 || req["n"] != float64(3) {
		t.Fatalf("unexpected request body: %v", req)
	}
	msgs := req["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected a single user message, got %v", msgs)
	}
	m := msgs[0].(map[string]any)
	if m["role"] != "user" || m["content"] != "hello" {
		t.Fatalf("unexpected message: %v", m)
	}
}

func TestClientHTTPErrorIncludesBody(t *testing.T) {
	srv, _ := newUpstreamServer(t, http.StatusTooManyRequests, `{"error":"rate limited"}`)
	defer srv.Close()
	c := NewClient(srv.URL, "test-key", "m", 0)
	_, err := c.Query(context.Background(), "p", 1)
	var te *sample.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if te.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d", te.Status)
	}
	if te.Message != `{"error":"rate limited"}` {
		t.Fatalf("body not captured: %q", te.Message)
	}
}

func TestClientNetworkError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "k", "m", 0)
	_, err := c.Query(context.Background(), "p", 1)
	if !sample.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestNewBuildsBatchedSampler(t *testing.T) {
	srv, seen := newUpstreamServer(t, http.StatusOK, "")
	defer srv.Close()
	s := New(srv.URL, "test-key", sample.Spec{Name: "m", Temperature: 0.2, MaxBatch: 2})
	st := s.Sample("p", 4)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := st.Next(ctx); err != nil {
			t.Fatalf("pull %d: %v", i, err)
		}
	}
	// maxBatch 2, hint 4 -> two round trips of n=2
	if len(*seen) != 2 {
		t.Fatalf("expected 2 round trips, got %d", len(*seen))
	}
	for _, req := range *seen {
		if req["n"] != float64(2) {
			t.Fatalf("unexpected n: %v", req["n"])
		}
	}
}

func TestPresetsRequireAPIKey(t *testing.T) {
	t.Setenv("FIREWORKS_API_KEY", "")
	if _, err := Fireworks(sample.Spec{Name: "m"}); err == nil {
		t.Fatalf("expected error with unset key")
	}
	t.Setenv("FIREWORKS_API_KEY", "k")
	if _, err := Fireworks(sample.Spec{Name: "m"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLocalStubFailsFast(t *testing.T) {
	if LocalBuilt {
		t.Skip("built with llama support")
	}
	if _, err := NewLocal("model.gguf", LocalOptions{}); err == nil {
		t.Fatalf("expected stub to fail")
	}
}
