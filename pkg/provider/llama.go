//go:build llama

package provider

import (
	"context"
	"errors"

	llama "github.com/go-skynet/go-llama.cpp"
)

// LocalBuilt reports that this binary was compiled with in-process llama
// support.
const LocalBuilt = true

// LocalOptions configures the in-process llama.cpp transport.
type LocalOptions struct {
	CtxSize     int
	Threads     int
	MaxTokens   int
	Temperature float64
}

// Local generates completions with an in-process llama.cpp model. It
// satisfies sample.Querier: one Query runs n sequential predictions.
type Local struct {
	model *llama.LLama
	opts  LocalOptions
}

// NewLocal loads the gguf model at modelPath.
func NewLocal(modelPath string, opts LocalOptions) (*Local, error) {
	if modelPath == "" {
		return nil, errors.New("model path is empty")
	}
	if opts.CtxSize <= 0 {
		opts.CtxSize = 2048
	}
	if opts.Threads <= 0 {
		opts.Threads = 4
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 256
	}
	m, err := llama.New(modelPath, llama.SetContext(opts.CtxSize))
	if err != nil {
		return nil, err
	}
	return &Local{model: m, opts: opts}, nil
}

func (l *Local) Query(ctx context.Context, prompt string, n int) ([]string, error) {
	if l.model == nil {
		return nil, errors.New("llama model not initialized")
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := l.model.Predict(prompt,
			llama.SetTokens(l.opts.MaxTokens),
			llama.SetThreads(l.opts.Threads),
			llama.SetTemperature(float32(l.opts.Temperature)),
		)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

// Close frees the loaded model.
func (l *Local) Close() error {
	if l.model != nil {
		l.model.Free()
		l.model = nil
	}
	return nil
}
