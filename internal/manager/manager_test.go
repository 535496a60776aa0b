package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"sampled/internal/config"
	"sampled/pkg/cache"
)

// newUpstream serves an OpenAI-compatible endpoint producing globally
// sequenced completions r0, r1, ... and counting requests.
func newUpstream(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	var seq atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		requests.Add(1)
		var body struct {
			N int `json:"n"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if body.N < 1 {
			body.N = 1
		}
		choices := make([]map[string]any, body.N)
		for i := range choices {
			choices[i] = map[string]any{
				"index":   i,
				"message": map[string]any{"role": "assistant", "content": fmt.Sprintf("r%d", seq.Add(1)-1)},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"choices": choices})
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestConfig(root, baseURL string) config.Config {
	return config.Config{
		CacheRoot: root,
		Models: []config.ModelConfig{
			{Name: "m1", Alias: "fast", Temperature: 0.7, MaxBatch: 4, BaseURL: baseURL},
		},
	}
}

func TestSampleRecordsAndReplays(t *testing.T) {
	srv, requests := newUpstream(t)
	root := t.TempDir()

	m, err := New(newTestConfig(root, srv.URL))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	first, err := m.Sample(context.Background(), "", "prompt", 2)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(first) != 2 || first[0] != "r0" || first[1] != "r1" {
		t.Fatalf("unexpected samples: %v", first)
	}
	before := requests.Load()

	// A fresh manager over the same cache root must replay, not refetch.
	m2, err := New(newTestConfig(root, srv.URL))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	again, err := m2.Sample(context.Background(), "fast", "prompt", 2)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if again[0] != first[0] || again[1] != first[1] {
		t.Fatalf("replay mismatch: %v vs %v", again, first)
	}
	if requests.Load() != before {
		t.Fatalf("replay hit upstream: %d extra requests", requests.Load()-before)
	}
}

func TestSampleModelNotFound(t *testing.T) {
	srv, _ := newUpstream(t)
	m, err := New(newTestConfig(t.TempDir(), srv.URL))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	_, err = m.Sample(context.Background(), "nope", "p", 1)
	if !IsModelNotFound(err) {
		t.Fatalf("expected model not found, got %v", err)
	}
}

func TestReplicationMiss(t *testing.T) {
	cfg := newTestConfig(t.TempDir(), "")
	cfg.Replication = true
	cfg.Models[0].BaseURL = ""
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	_, err = m.Sample(context.Background(), "", "unrecorded", 1)
	if !cache.IsMiss(err) {
		t.Fatalf("expected cache miss, got %v", err)
	}
}

func TestSQLiteBackend(t *testing.T) {
	srv, _ := newUpstream(t)
	root := t.TempDir()
	cfg := newTestConfig(root, srv.URL)
	cfg.Backend = "sqlite"
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer m.Close()
	got, err := m.Sample(context.Background(), "", "p", 1)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	again, err := m.Sample(context.Background(), "", "p", 1)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if got[0] != again[0] {
		t.Fatalf("replay mismatch: %v vs %v", got, again)
	}
}

func TestListModelsAndStatus(t *testing.T) {
	srv, _ := newUpstream(t)
	root := t.TempDir()
	m, err := New(newTestConfig(root, srv.URL))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	models := m.ListModels()
	if len(models) != 1 {
		t.Fatalf("models: %+v", models)
	}
	if models[0].ID != "fast" || models[0].Partition != "fast_0.7" || models[0].MaxBatch != 4 {
		t.Fatalf("unexpected model: %+v", models[0])
	}

	if _, err := m.Sample(context.Background(), "", "p", 3); err != nil {
		t.Fatalf("sample: %v", err)
	}
	st := m.Status()
	if len(st.Models) != 1 || st.Replication {
		t.Fatalf("unexpected status: %+v", st)
	}
	ms := st.Models[0]
	if ms.Fingerprints != 1 || ms.Samples != 3 {
		t.Fatalf("unexpected recorded counts: %+v", ms)
	}
	if ms.Stats.Misses != 3 || ms.Stats.Hits != 0 {
		t.Fatalf("unexpected stats: %+v", ms.Stats)
	}
}

func TestNewRejectsUnknownPreset(t *testing.T) {
	cfg := config.Config{
		CacheRoot: t.TempDir(),
		Models:    []config.ModelConfig{{Name: "m", Preset: "bogus"}},
	}
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected unknown preset error")
	}
}
