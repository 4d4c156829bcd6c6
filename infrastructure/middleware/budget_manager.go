package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-chateval/infrastructure/llm"
)

// ErrBudgetExceeded is matched by every *BudgetExceededError.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Budget limits the judge requests of one run. Zero means unlimited.
type Budget struct {
	MaxTokens int64
	MaxCalls  int64
}

// Usage is what the judge has consumed so far.
type Usage struct {
	Tokens int64
	Calls  int64
}

// BudgetExceededError reports which limit stopped a request.
type BudgetExceededError struct {
	LimitType string
	Limit     int64
	Used      int64
}

// Error implements the error interface for BudgetExceededError.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: %s limit=%d used=%d", e.LimitType, e.Limit, e.Used)
}

// Is reports whether target is ErrBudgetExceeded.
func (e *BudgetExceededError) Is(target error) bool { return target == ErrBudgetExceeded }

// BudgetObserver provides observability hooks for budget checks.
// PreCheck may return a derived context; it is the one passed to PostCheck.
type BudgetObserver interface {
	PreCheck(ctx context.Context, usage Usage, budget Budget) context.Context
	PostCheck(ctx context.Context, usage Usage, budget Budget, elapsed time.Duration, err error)
}

// BudgetManager enforces a token and call budget across every request made
// through its middleware. One manager is shared by a run.
type BudgetManager struct {
	budget   Budget
	observer BudgetObserver

	mu    sync.Mutex
	usage Usage
}

// NewBudgetManager returns a manager for budget. observer may be nil.
func NewBudgetManager(budget Budget, observer BudgetObserver) *BudgetManager {
	return &BudgetManager{budget: budget, observer: observer}
}

// Usage returns the usage recorded so far.
func (bm *BudgetManager) Usage() Usage {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.usage
}

// Middleware returns an llm.Middleware that charges every request to the
// manager. A request is refused before it is sent once the call limit is
// reached or the token limit has been used up.
func (bm *BudgetManager) Middleware() llm.Middleware {
	return func(next llm.CoreLLM) llm.CoreLLM {
		return &budgetedLLM{manager: bm, next: next}
	}
}

// reserve counts a call against the budget, or fails without counting it.
func (bm *BudgetManager) reserve() (Usage, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.budget.MaxCalls > 0 && bm.usage.Calls >= bm.budget.MaxCalls {
		return bm.usage, &BudgetExceededError{LimitType: "calls", Limit: bm.budget.MaxCalls, Used: bm.usage.Calls}
	}
	if bm.budget.MaxTokens > 0 && bm.usage.Tokens >= bm.budget.MaxTokens {
		return bm.usage, &BudgetExceededError{LimitType: "tokens", Limit: bm.budget.MaxTokens, Used: bm.usage.Tokens}
	}
	bm.usage.Calls++
	return bm.usage, nil
}

func (bm *BudgetManager) charge(tokens int) Usage {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.usage.Tokens += int64(tokens)
	return bm.usage
}

type budgetedLLM struct {
	manager *BudgetManager
	next    llm.CoreLLM
}

func (b *budgetedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	bm := b.manager
	usage, err := bm.reserve()
	if bm.observer != nil {
		ctx = bm.observer.PreCheck(ctx, usage, bm.budget)
	}
	if err != nil {
		if bm.observer != nil {
			bm.observer.PostCheck(ctx, usage, bm.budget, 0, err)
		}
		return "", 0, 0, err
	}

	start := time.Now()
	resp, in, out, err := b.next.DoRequest(ctx, prompt, opts)
	usage = bm.charge(in + out)

	if bm.observer != nil {
		bm.observer.PostCheck(ctx, usage, bm.budget, time.Since(start), err)
	}
	return resp, in, out, err
}

func (b *budgetedLLM) GetModel() string { return b.next.GetModel() }
