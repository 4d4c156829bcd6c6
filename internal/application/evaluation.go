// Package application wires configuration, chatbots, scorers and datasets
// into an evaluation run.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-chateval/internal/dataset"
	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

var tracer = otel.Tracer("evaluation")

type runOptions struct {
	config      *Config
	configPath  string
	chatbot     ports.ChatBot
	scorers     []ports.Scorer
	scorersSet  bool
	dataset     *dataset.Dataset
	registry    *ScorerRegistry
	credentials *Credentials
	deps        Dependencies
}

// Option configures RunEvaluation. Components that are not injected are
// built from the configuration.
type Option func(*runOptions)

// WithConfig uses cfg instead of reading a configuration file.
func WithConfig(cfg *Config) Option {
	return func(o *runOptions) { o.config = cfg }
}

// WithConfigPath reads the configuration from path. The default is
// DefaultConfigPath.
func WithConfigPath(path string) Option {
	return func(o *runOptions) { o.configPath = path }
}

// WithChatbot evaluates c instead of the configured chatbot.
func WithChatbot(c ports.ChatBot) Option {
	return func(o *runOptions) { o.chatbot = c }
}

// WithScorers uses scorers, in order, instead of the configured list. An
// empty list is honored.
func WithScorers(scorers ...ports.Scorer) Option {
	return func(o *runOptions) {
		o.scorers = scorers
		o.scorersSet = true
	}
}

// WithDataset evaluates ds instead of reading dataset_path.
func WithDataset(ds *dataset.Dataset) Option {
	return func(o *runOptions) { o.dataset = ds }
}

// WithRegistry builds configured scorers from r.
func WithRegistry(r *ScorerRegistry) Option {
	return func(o *runOptions) { o.registry = r }
}

// WithCredentials sets the remote chatbot credentials. The default is
// CredentialsFromEnv.
func WithCredentials(c Credentials) Option {
	return func(o *runOptions) { o.credentials = &c }
}

// WithLogger sets the logger used by the run and the components it builds.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) { o.deps.Logger = l }
}

// WithMetrics records run metrics to m.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(o *runOptions) { o.deps.Metrics = m }
}

// WithEmbedder makes the semantic scorers embed with e.
func WithEmbedder(e ports.Embedder) Option {
	return func(o *runOptions) { o.deps.Embedder = e }
}

// WithLLMClient makes the judge scorer ask c.
func WithLLMClient(c ports.LLMClient) Option {
	return func(o *runOptions) { o.deps.LLMClient = c }
}

// Evaluator runs a chatbot over a dataset and scores each answer.
type Evaluator struct {
	config  *Config
	chatbot ports.ChatBot
	scorers []ports.Scorer
	dataset *dataset.Dataset
	logger  *slog.Logger
	metrics ports.MetricsCollector
}

// NewEvaluator resolves every component of a run. Components are loaded in
// the order config, chatbot, scorers, dataset; the first failure is
// returned.
func NewEvaluator(ctx context.Context, opts ...Option) (*Evaluator, error) {
	o := runOptions{configPath: DefaultConfigPath}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.deps.logger()
	o.deps.Logger = logger

	cfg := o.config
	if cfg == nil {
		var err error
		if cfg, err = LoadConfig(o.configPath); err != nil {
			return nil, err
		}
		logger.Info("config loaded", "path", o.configPath)
	}

	bot := o.chatbot
	if bot == nil {
		creds := CredentialsFromEnv()
		if o.credentials != nil {
			creds = *o.credentials
		}
		var err error
		if bot, err = LoadChatbot(cfg, nil, creds, o.deps); err != nil {
			return nil, err
		}
		logger.Info("chatbot loaded", "chatbot_type", cfg.ChatbotType)
	}

	scorers := o.scorers
	if !o.scorersSet {
		var err error
		if scorers, err = LoadScorers(ctx, cfg, o.registry, o.deps); err != nil {
			return nil, err
		}
		logger.Info("scorers loaded", "scorers", cfg.Scorers)
	}

	ds := o.dataset
	if ds == nil {
		var err error
		if ds, err = LoadDataset(cfg, logger); err != nil {
			return nil, err
		}
	}

	return &Evaluator{
		config:  cfg,
		chatbot: bot,
		scorers: scorers,
		dataset: ds,
		logger:  logger,
		metrics: o.deps.Metrics,
	}, nil
}

// Config returns the configuration of the run.
func (e *Evaluator) Config() *Config { return e.config }

// Chatbot returns the chatbot under evaluation.
func (e *Evaluator) Chatbot() ports.ChatBot { return e.chatbot }

// Dataset returns the evaluated dataset.
func (e *Evaluator) Dataset() *dataset.Dataset { return e.dataset }

// RunEvaluation builds an Evaluator from opts and runs it.
func RunEvaluation(ctx context.Context, opts ...Option) ([]domain.EvaluationResult, error) {
	e, err := NewEvaluator(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx)
}

// Run evaluates every record in dataset order. Records are processed one
// at a time and the first error aborts the run without partial results.
func (e *Evaluator) Run(ctx context.Context) ([]domain.EvaluationResult, error) {
	ctx, span := tracer.Start(ctx, "evaluation.run", trace.WithAttributes(
		attribute.String("dataset.type", string(e.dataset.Type())),
		attribute.Int("dataset.records", e.dataset.Len()),
		attribute.Int("scorers.count", len(e.scorers)),
	))
	defer span.End()

	start := time.Now()
	e.gauge("records", float64(e.dataset.Len()))

	lang := e.config.PromptLanguage()
	results := make([]domain.EvaluationResult, 0, e.dataset.Len())
	for idx, rec := range e.dataset.All() {
		if err := ctx.Err(); err != nil {
			return nil, e.abort(span, start, err)
		}

		question, reference, err := dataset.ExtractQuestionReference(rec, lang)
		if err != nil {
			return nil, e.abort(span, start, err)
		}

		result, err := e.evaluate(ctx, idx, question, reference)
		if err != nil {
			return nil, e.abort(span, start, fmt.Errorf("record %d: %w", idx, err))
		}
		results = append(results, result)

		if e.metrics != nil {
			e.metrics.RecordCounter("records_evaluated_total", 1,
				map[string]string{"dataset_type": string(e.dataset.Type())})
		}
	}

	e.latency("evaluation_run", time.Since(start), "success")
	e.gauge("records_completed", float64(len(results)))
	span.SetStatus(codes.Ok, "")
	e.logger.Info("evaluation finished", "records", len(results), "elapsed", time.Since(start))
	return results, nil
}

func (e *Evaluator) evaluate(ctx context.Context, idx int, question, reference string) (domain.EvaluationResult, error) {
	ctx, span := tracer.Start(ctx, "evaluation.record", trace.WithAttributes(attribute.Int("record.index", idx)))
	defer span.End()

	start := time.Now()
	predicted, err := e.chatbot.GetResponse(ctx, domain.PromptFromQuestion(question))
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chatbot failed")
		return domain.EvaluationResult{}, err
	}
	duration := domain.RoundDuration(elapsed.Seconds())
	e.logger.Info("Q-A extracted", "index", idx, "question", shorten(question))

	if limit := e.config.ResponseTimeLimitDuration(); elapsed > limit {
		e.logger.Warn("response time limit exceeded", "index", idx, "duration", duration, "limit", limit)
	}

	scores := make(map[string]float64, len(e.scorers))
	for _, s := range e.scorers {
		key := s.Type().Key()
		v, err := s.Score(ctx, predicted, reference)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scoring failed")
			return domain.EvaluationResult{}, err
		}
		scores[key] = v
		if e.metrics != nil {
			e.metrics.RecordHistogram("score", v, map[string]string{"scorer": key})
		}
	}
	e.logger.Info("Q-A scored", "index", idx, "scores", scores)
	span.SetAttributes(attribute.Float64("record.duration", duration))

	return domain.EvaluationResult{
		Index:           idx,
		Question:        question,
		ReferenceAnswer: reference,
		PredictedAnswer: predicted,
		Duration:        duration,
		Scores:          scores,
	}, nil
}

func (e *Evaluator) abort(span trace.Span, start time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.latency("evaluation_run", time.Since(start), "error")
	e.logger.Error("evaluation aborted", "error", err)
	return err
}

func (e *Evaluator) latency(op string, d time.Duration, status string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordLatency(op, d, map[string]string{"status": status})
}

func (e *Evaluator) gauge(metric string, v float64) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordGauge(metric, v, nil)
}

// shorten returns the first ten runes of s for log lines.
func shorten(s string) string {
	r := []rune(s)
	if len(r) <= 10 {
		return s
	}
	return string(r[:10])
}
