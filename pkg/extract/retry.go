package extract

import (
	"context"
	"errors"
	"fmt"

	"sampled/pkg/sample"
)

// OutputError wraps the final failure after Query exhausts its attempts.
type OutputError struct {
	Attempts int
	Err      error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("query failed after %d attempts; last error: %v", e.Attempts, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }

// IsOutput reports whether err is an OutputError.
func IsOutput(err error) bool {
	var oe *OutputError
	return errors.As(err, &oe)
}

var errValidatorRejected = errors.New("validator returned false")

// Query samples from s until a completion parses against spec (and passes
// validate, when given), retrying up to attempts times. The sampler is
// isolated first, so each attempt advances one shared sequence: a
// cache-backed sampler yields its next recorded or fresh completion per
// attempt instead of replaying position zero. After the last attempt the
// final failure is surfaced wrapped in an OutputError.
func Query(ctx context.Context, s sample.Sampler, prompt string, spec Spec, attempts int, validate func(any) bool) (any, error) {
	src := sample.Isolate(s)
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := src.Sample(prompt, 1).Next(ctx)
		if err != nil {
			last = err
			continue
		}
		v, err := Parse(spec, raw)
		if err != nil {
			last = err
			continue
		}
		if validate != nil && !validate(v) {
			last = errValidatorRejected
			continue
		}
		return v, nil
	}
	return nil, &OutputError{Attempts: attempts, Err: last}
}
