//go:build !llama

package provider

// This file provides a no-CGO stub for the in-process llama transport. It
// is compiled when the 'llama' build tag is NOT set, keeping default builds
// and CI CGO-free. The real transport lives in llama.go (tagged 'llama').

import (
	"context"
	"errors"
)

// LocalBuilt reports that this binary was compiled with in-process llama
// support.
const LocalBuilt = false

var errNoLlama = errors.New("llama support not built (missing 'llama' build tag)")

// LocalOptions configures the in-process llama.cpp transport.
type LocalOptions struct {
	CtxSize     int
	Threads     int
	MaxTokens   int
	Temperature float64
}

// Local is a stub that refuses to run without the 'llama' build tag.
type Local struct{}

// NewLocal fails fast: the llama runtime is not available in this build.
func NewLocal(modelPath string, opts LocalOptions) (*Local, error) {
	return nil, errNoLlama
}

func (l *Local) Query(ctx context.Context, prompt string, n int) ([]string, error) {
	return nil, errNoLlama
}

// Close is a no-op in the stub.
func (l *Local) Close() error { return nil }
