package sample

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Spec identifies a model for caching and batching purposes. Alias is the
// externally visible cache partition key and defaults to Name. MaxBatch
// bounds how many completions a single upstream query may request.
type Spec struct {
	Name        string
	Temperature float64
	Alias       string
	MaxBatch    int
}

// Normalize fills in defaults: empty Alias becomes Name, MaxBatch is
// clamped to at least 1.
func (s Spec) Normalize() Spec {
	if s.Alias == "" {
		s.Alias = s.Name
	}
	if s.MaxBatch < 1 {
		s.MaxBatch = 1
	}
	return s
}

// Partition returns the "<alias>_<temperature>" key identifying one logical
// cache subtree. The temperature is rendered to 3 decimal places with
// trailing zeros and a trailing decimal point stripped, so 0.700 becomes
// "0.7" and 1.000 becomes "1". Recorded trees depend on this exact form.
func (s Spec) Partition() string {
	t := strconv.FormatFloat(s.Temperature, 'f', 3, 64)
	t = strings.TrimRight(t, "0")
	t = strings.TrimSuffix(t, ".")
	return s.Alias + "_" + t
}

// Fingerprint returns the hex-encoded SHA-256 digest of the prompt text.
// It is the sole cache key for a prompt within a partition.
func Fingerprint(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Stream is a cursor over a logical sequence of completions for one prompt.
// Next may block on network or filesystem I/O. A stream never terminates on
// its own: it either produces another value or fails.
type Stream interface {
	Next(ctx context.Context) (string, error)
	// SetBatch tunes internal buffering for subsequent pulls. It must not
	// change which values are produced.
	SetBatch(n int)
}

// Sampler is the minimal sampling capability.
type Sampler interface {
	Spec() Spec
	// Sample returns a cursor over completions for prompt. batch is a
	// buffering hint only.
	Sample(prompt string, batch int) Stream
	// Replays reports whether successive Sample calls for the same prompt
	// restart the logical sequence at position zero. Caches replay; raw
	// transports and isolators do not. Wrappers use this to decide whether
	// another isolation or memoization layer would be redundant.
	Replays() bool
}

// Querier performs one upstream round trip requesting exactly n fresh
// completions for prompt. Implementations live in pkg/provider.
type Querier interface {
	Query(ctx context.Context, prompt string, n int) ([]string, error)
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(ctx context.Context, prompt string, n int) ([]string, error)

func (f QuerierFunc) Query(ctx context.Context, prompt string, n int) ([]string, error) {
	return f(ctx, prompt, n)
}
