package manager

import (
	"context"
	"fmt"
	"os"
	"time"

	"sampled/internal/common/fsutil"
	"sampled/internal/config"
	"sampled/internal/registry"
	"sampled/pkg/cache"
	"sampled/pkg/provider"
	"sampled/pkg/sample"
	"sampled/pkg/types"
)

// modelEntry is one configured model stack: the sampling identity plus
// the cache wrapping its upstream.
type modelEntry struct {
	spec  sample.Spec
	cache *cache.Cache
}

// Manager owns the per-model sampler stacks built from the configuration.
// The registry is fixed after New; all methods are safe for concurrent use.
type Manager struct {
	cfg     config.Config
	root    string
	models  map[string]*modelEntry
	order   []string
	stores  []*cache.SQLiteStore
	started time.Time
}

// New builds a model stack per configured model. In replication mode the
// stacks serve only recorded samples and never query upstream.
func New(cfg config.Config) (*Manager, error) {
	cfg = cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	root, err := fsutil.ExpandHome(cfg.CacheRoot)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	m := &Manager{
		cfg:     cfg,
		root:    root,
		models:  make(map[string]*modelEntry, len(cfg.Models)),
		started: time.Now(),
	}
	for _, mc := range cfg.Models {
		spec := sample.Spec{
			Name:        mc.Name,
			Temperature: mc.Temperature,
			Alias:       mc.Alias,
			MaxBatch:    mc.MaxBatch,
		}.Normalize()
		upstream, err := buildUpstream(mc, spec, cfg.Replication)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", spec.Alias, err)
		}
		var c *cache.Cache
		switch cfg.Backend {
		case "sqlite":
			cc, store, err := cache.NewSQLite(upstream, cfg.SQLitePath, cfg.Replication)
			if err != nil {
				return nil, fmt.Errorf("model %q: %w", spec.Alias, err)
			}
			m.stores = append(m.stores, store)
			c = cc
		default:
			cc, err := cache.NewDisk(upstream, cfg.CacheRoot, cfg.Replication)
			if err != nil {
				return nil, fmt.Errorf("model %q: %w", spec.Alias, err)
			}
			c = cc
		}
		m.models[spec.Alias] = &modelEntry{spec: spec, cache: c}
		m.order = append(m.order, spec.Alias)
	}
	return m, nil
}

// buildUpstream selects the transport for one model. Replication stacks
// get an upstream too so the wiring is uniform, but it is never queried.
func buildUpstream(mc config.ModelConfig, spec sample.Spec, replication bool) (sample.Sampler, error) {
	if mc.BaseURL != "" {
		return provider.New(mc.BaseURL, os.Getenv(mc.APIKeyEnv), spec), nil
	}
	if mc.Preset != "" {
		preset, ok := provider.Presets[mc.Preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", mc.Preset)
		}
		if replication {
			// Presets require an API key in the environment; skip the
			// lookup since replication never reaches the transport.
			return provider.New("", "", spec), nil
		}
		return preset(spec)
	}
	if replication {
		return provider.New("", "", spec), nil
	}
	return nil, fmt.Errorf("no upstream configured")
}

// Ready reports whether the manager can serve requests.
func (m *Manager) Ready() bool { return len(m.models) > 0 }

// Close releases any backing stores.
func (m *Manager) Close() error {
	var first error
	for _, s := range m.stores {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *Manager) resolve(id string) (*modelEntry, error) {
	if id == "" {
		id = m.cfg.DefaultModel
	}
	e, ok := m.models[id]
	if !ok {
		return nil, ErrModelNotFound(id)
	}
	return e, nil
}

// Sample pulls n completions for prompt from the named model's cache,
// replaying recorded samples before fetching fresh ones. An empty id
// selects the configured default model.
func (m *Manager) Sample(ctx context.Context, id, prompt string, n int) ([]string, error) {
	e, err := m.resolve(id)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		n = 1
	}
	stream := e.cache.Sample(prompt, n)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, err := stream.Next(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ListModels returns the configured models in configuration order.
func (m *Manager) ListModels() []types.Model {
	out := make([]types.Model, 0, len(m.order))
	for _, id := range m.order {
		e := m.models[id]
		out = append(out, types.Model{
			ID:          id,
			Name:        e.spec.Name,
			Temperature: e.spec.Temperature,
			Partition:   e.spec.Partition(),
			MaxBatch:    e.spec.MaxBatch,
			Replication: e.cache.Replication(),
		})
	}
	return out
}

// Status reports per-model cache counters plus what is recorded on disk.
func (m *Manager) Status() types.StatusResponse {
	resp := types.StatusResponse{
		CacheRoot:      m.root,
		Replication:    m.cfg.Replication,
		UptimeSeconds:  int64(time.Since(m.started).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	recorded := make(map[string]registry.Partition)
	if m.cfg.Backend == "disk" {
		parts, err := registry.Scan(m.root)
		if err != nil {
			resp.Error = err.Error()
		}
		for _, p := range parts {
			recorded[p.Alias+"_"+p.Temperature] = p
		}
	}
	for _, id := range m.order {
		e := m.models[id]
		stats := e.cache.Stats()
		st := types.ModelStatus{
			ID:        id,
			Partition: e.spec.Partition(),
			Stats:     types.CacheStats{Hits: stats.Hits, Misses: stats.Misses},
		}
		if p, ok := recorded[e.spec.Partition()]; ok {
			st.Fingerprints = len(p.Fingerprints)
			st.Samples = p.Samples()
		}
		resp.Models = append(resp.Models, st)
	}
	return resp
}
