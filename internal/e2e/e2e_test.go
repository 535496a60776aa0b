package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"sampled/internal/config"
	"sampled/internal/httpapi"
	"sampled/internal/manager"
	"sampled/pkg/types"
)

// newFakeUpstream serves an OpenAI-compatible chat endpoint producing
// globally sequenced completions u0, u1, ... and counting requests.
func newFakeUpstream(t *testing.T) (*httptest.Server, *atomic.Int64) {
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
				"message": map[string]any{"role": "assistant", "content": fmt.Sprintf("u%d", seq.Add(1)-1)},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"choices": choices})
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	mgr, err := manager.New(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv
}

func doChat(t *testing.T, srv *httptest.Server, body string) (int, types.ChatResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var cr types.ChatResponse
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(b, &cr); err != nil {
			t.Fatalf("decode %s: %v", b, err)
		}
	}
	return resp.StatusCode, cr
}

func contents(cr types.ChatResponse) []string {
	out := make([]string, len(cr.Choices))
	for i, c := range cr.Choices {
		out[i] = c.Message.Content
	}
	return out
}

func TestE2E_RecordThenReplicate(t *testing.T) {
	upstream, requests := newFakeUpstream(t)
	root := t.TempDir()
	cfg := config.Config{
		CacheRoot: root,
		Models: []config.ModelConfig{
			{Name: "m1", Alias: "fast", Temperature: 0.7, MaxBatch: 4, BaseURL: upstream.URL},
		},
	}

	// Record phase: fresh samples come from upstream and land on disk.
	rec := newServer(t, cfg)
	code, first := doChat(t, rec, `{"model":"fast","n":2,"messages":[{"role":"user","content":"haiku"}]}`)
	if code != http.StatusOK {
		t.Fatalf("record status %d", code)
	}
	if got := contents(first); len(got) != 2 || got[0] != "u0" || got[1] != "u1" {
		t.Fatalf("unexpected completions: %v", got)
	}
	recorded := requests.Load()

	// Replication phase: a separate server over the same cache root with no
	// upstream must serve the same sequence and 404 on anything unrecorded.
	repCfg := cfg
	repCfg.Replication = true
	repCfg.Models = []config.ModelConfig{
		{Name: "m1", Alias: "fast", Temperature: 0.7, MaxBatch: 4},
	}
	rep := newServer(t, repCfg)

	code, again := doChat(t, rep, `{"model":"fast","n":2,"messages":[{"role":"user","content":"haiku"}]}`)
	if code != http.StatusOK {
		t.Fatalf("replicate status %d", code)
	}
	if a, b := contents(first), contents(again); a[0] != b[0] || a[1] != b[1] {
		t.Fatalf("replication mismatch: %v vs %v", a, b)
	}

	code, _ = doChat(t, rep, `{"model":"fast","messages":[{"role":"user","content":"unrecorded"}]}`)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for unrecorded prompt, got %d", code)
	}
	if requests.Load() != recorded {
		t.Fatalf("replication reached upstream: %d extra requests", requests.Load()-recorded)
	}
}

func TestE2E_ReplaySkipsUpstream(t *testing.T) {
	upstream, requests := newFakeUpstream(t)
	cfg := config.Config{
		CacheRoot: t.TempDir(),
		Models: []config.ModelConfig{
			{Name: "m1", Temperature: 1, MaxBatch: 2, BaseURL: upstream.URL},
		},
	}
	srv := newServer(t, cfg)

	body := `{"n":3,"messages":[{"role":"user","content":"p"}]}`
	code, first := doChat(t, srv, body)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	// n=3 with max batch 2 needs two upstream round trips.
	if requests.Load() != 2 {
		t.Fatalf("expected 2 upstream requests, got %d", requests.Load())
	}
	before := requests.Load()
	code, again := doChat(t, srv, body)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if requests.Load() != before {
		t.Fatalf("replay reached upstream")
	}
	a, b := contents(first), contents(again)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("replay mismatch at %d: %v vs %v", i, a, b)
		}
	}
}

func TestE2E_StatusReflectsRecordings(t *testing.T) {
	upstream, _ := newFakeUpstream(t)
	cfg := config.Config{
		CacheRoot: t.TempDir(),
		Models: []config.ModelConfig{
			{Name: "m1", Alias: "fast", Temperature: 0.7, BaseURL: upstream.URL},
		},
	}
	srv := newServer(t, cfg)

	if code, _ := doChat(t, srv, `{"n":2,"messages":[{"role":"user","content":"p"}]}`); code != http.StatusOK {
		t.Fatalf("chat status %d", code)
	}
	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	var st types.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(st.Models) != 1 {
		t.Fatalf("status models: %+v", st)
	}
	ms := st.Models[0]
	if ms.Partition != "fast_0.7" || ms.Fingerprints != 1 || ms.Samples != 2 {
		t.Fatalf("unexpected model status: %+v", ms)
	}
}
