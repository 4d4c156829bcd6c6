package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-chateval/internal/ports"
)

var _ BudgetObserver = (*OTelBudgetObserver)(nil)

// Usage shares at which threshold events are added to the span.
const (
	budgetWarningThreshold  = 0.8
	budgetCriticalThreshold = 0.9
)

// OTelBudgetObserver traces every budget check and reports usage gauges to
// a MetricsCollector.
type OTelBudgetObserver struct {
	metrics ports.MetricsCollector
	scope   string
	tracer  trace.Tracer
}

// NewOTelBudgetObserver returns an observer labeling its metrics with
// scope. metrics may be nil.
func NewOTelBudgetObserver(metrics ports.MetricsCollector, scope string) *OTelBudgetObserver {
	return &OTelBudgetObserver{
		metrics: metrics,
		scope:   scope,
		tracer:  otel.Tracer("budget-manager"),
	}
}

// PreCheck starts a span carrying the usage before the request.
func (o *OTelBudgetObserver) PreCheck(ctx context.Context, usage Usage, budget Budget) context.Context {
	ctx, span := o.tracer.Start(ctx, "budget.check")
	o.addSpanAttributes(span, usage, budget)
	o.checkThresholds(span, usage, budget)
	return ctx
}

// PostCheck ends the span started by PreCheck and records metrics.
func (o *OTelBudgetObserver) PostCheck(ctx context.Context, usage Usage, budget Budget, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	o.addSpanAttributes(span, usage, budget)
	if o.metrics != nil {
		o.metrics.RecordLatency("budget_check", elapsed, map[string]string{"status": status(err)})
	}

	var budgetErr *BudgetExceededError
	switch {
	case errors.As(err, &budgetErr):
		span.AddEvent("budget.exceeded", trace.WithAttributes(
			attribute.String("limit_type", budgetErr.LimitType),
			attribute.Int64("limit_value", budgetErr.Limit),
			attribute.Int64("used_value", budgetErr.Used),
		))
		span.SetStatus(codes.Error, "budget limit exceeded")
		if o.metrics != nil {
			o.metrics.RecordCounter("budget_exceeded_total", 1, map[string]string{"status": budgetErr.LimitType})
		}
		return
	case err != nil:
		span.SetStatus(codes.Error, err.Error())
		return
	}

	o.updateMetrics(usage, budget)
	span.SetStatus(codes.Ok, "")
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (o *OTelBudgetObserver) addSpanAttributes(span trace.Span, usage Usage, budget Budget) {
	span.SetAttributes(
		attribute.String("budget.scope", o.scope),
		attribute.Int64("budget.tokens_used", usage.Tokens),
		attribute.Int64("budget.calls_made", usage.Calls),
	)
	if budget.MaxTokens > 0 {
		span.SetAttributes(
			attribute.Int64("budget.max_tokens", budget.MaxTokens),
			attribute.Int64("budget.remaining_tokens", budget.MaxTokens-usage.Tokens),
		)
	}
	if budget.MaxCalls > 0 {
		span.SetAttributes(
			attribute.Int64("budget.max_calls", budget.MaxCalls),
			attribute.Int64("budget.remaining_calls", budget.MaxCalls-usage.Calls),
		)
	}
}

func (o *OTelBudgetObserver) checkThresholds(span trace.Span, usage Usage, budget Budget) {
	check := func(resource string, used, limit int64) {
		if limit <= 0 {
			return
		}
		share := float64(used) / float64(limit)
		name := ""
		switch {
		case share >= budgetCriticalThreshold:
			name = "budget.threshold.critical"
		case share >= budgetWarningThreshold:
			name = "budget.threshold.warning"
		default:
			return
		}
		span.AddEvent(name, trace.WithAttributes(
			attribute.String("resource_type", resource),
			attribute.Float64("usage_percentage", share*100),
		))
	}
	check("tokens", usage.Tokens, budget.MaxTokens)
	check("calls", usage.Calls, budget.MaxCalls)
}

func (o *OTelBudgetObserver) updateMetrics(usage Usage, budget Budget) {
	if o.metrics == nil {
		return
	}
	labels := map[string]string{"scope": o.scope}
	o.metrics.RecordGauge("budget_tokens_used", float64(usage.Tokens), labels)
	o.metrics.RecordGauge("budget_calls_used", float64(usage.Calls), labels)
	if budget.MaxTokens > 0 {
		o.metrics.RecordGauge("budget_remaining_tokens", float64(budget.MaxTokens-usage.Tokens), labels)
	}
	if budget.MaxCalls > 0 {
		o.metrics.RecordGauge("budget_remaining_calls", float64(budget.MaxCalls-usage.Calls), labels)
	}
}
