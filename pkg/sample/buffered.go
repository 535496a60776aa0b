package sample

import "context"

// Buffered adapts a Querier into a Sampler by buffering query results.
// A batch hint of n is split into ceil(n/MaxBatch) upstream queries of
// near-equal size, so no single round trip exceeds the provider limit while
// the number of round trips stays minimal.
type Buffered struct {
	spec Spec
	q    Querier
}

// NewBuffered returns a Sampler over q. The spec is normalized.
func NewBuffered(spec Spec, q Querier) *Buffered {
	return &Buffered{spec: spec.Normalize(), q: q}
}

func (b *Buffered) Spec() Spec { return b.spec }

// Replays is false: every Sample call draws fresh, independent completions.
func (b *Buffered) Replays() bool { return false }

func (b *Buffered) Sample(prompt string, batch int) Stream {
	s := &bufferedStream{b: b, prompt: prompt}
	s.SetBatch(batch)
	return s
}

// bufferedStream serves buffered completions in FIFO order, querying the
// upstream only when the buffer runs dry.
type bufferedStream struct {
	b      *Buffered
	prompt string
	size   int // per-query size after splitting
	buf    []string
}

func (s *bufferedStream) SetBatch(n int) {
	if n < 1 {
		n = 1
	}
	queries := (n + s.b.spec.MaxBatch - 1) / s.b.spec.MaxBatch
	s.size = (n + queries - 1) / queries
}

func (s *bufferedStream) Next(ctx context.Context) (string, error) {
	if len(s.buf) == 0 {
		out, err := s.b.q.Query(ctx, s.prompt, s.size)
		if err != nil {
			return "", err
		}
		if len(out) == 0 {
			return "", ErrEmptyBatch
		}
		s.buf = append(s.buf, out...)
	}
	v := s.buf[0]
	s.buf = s.buf[1:]
	return v, nil
}
