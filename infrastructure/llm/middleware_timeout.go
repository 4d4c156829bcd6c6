package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type timeoutLLM struct {
	next    CoreLLM
	timeout time.Duration
}

// TimeoutMiddleware caps each judge request at timeout (llm.timeout in the
// run config) so one stalled verdict cannot hold up the evaluation loop.
// A non-positive timeout leaves requests unbounded.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		if timeout <= 0 {
			return next
		}
		return &timeoutLLM{next: next, timeout: timeout}
	}
}

// DoRequest runs the request under a derived deadline. Hitting that
// deadline, rather than the caller's, is reported with the limit.
func (t *timeoutLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, in, out, err := t.next.DoRequest(reqCtx, prompt, opts)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return resp, in, out, fmt.Errorf("judge request exceeded %s: %w", t.timeout, err)
	}
	return resp, in, out, err
}

func (t *timeoutLLM) GetModel() string { return t.next.GetModel() }
