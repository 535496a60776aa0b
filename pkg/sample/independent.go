package sample

import "sync"

// Independent guarantees that repeated Sample calls for the same prompt
// observe a single shared, monotonically advancing stream instead of each
// spawning a fresh one. A cache built on top therefore sees a stable,
// position-addressable sequence to memoize, and callers that sample in a
// loop (such as the retry helper in pkg/extract) get successive values
// rather than the same replayed position.
type Independent struct {
	inner Sampler

	mu      sync.Mutex
	streams map[string]Stream // prompt fingerprint -> shared stream
}

// Isolate wraps inner so that sequences for one prompt are shared across
// Sample calls. When inner does not replay (a raw transport, an amortizer,
// or an already isolated sampler), isolation adds nothing and inner is
// returned unchanged.
func Isolate(inner Sampler) Sampler {
	if !inner.Replays() {
		return inner
	}
	return &Independent{inner: inner, streams: make(map[string]Stream)}
}

func (ind *Independent) Spec() Spec { return ind.inner.Spec() }

// Replays is false: the shared stream advances across calls rather than
// restarting.
func (ind *Independent) Replays() bool { return false }

func (ind *Independent) Sample(prompt string, batch int) Stream {
	fp := Fingerprint(prompt)
	ind.mu.Lock()
	s, ok := ind.streams[fp]
	if !ok {
		s = ind.inner.Sample(prompt, batch)
		ind.streams[fp] = s
	}
	ind.mu.Unlock()
	s.SetBatch(batch)
	return s
}
