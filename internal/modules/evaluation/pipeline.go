package evaluation

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/observability"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

// AgentUnavailable replaces the output of an agent call that failed.
const AgentUnavailable = "[agent unavailable: this review could not be produced]"

const (
	AgentArchitecture = "architecture_critic"
	AgentReliability  = "reliability_auditor"
	AgentSynthesizer  = "synthesizer"
)

var (
	tracer = otel.Tracer("cortex.evaluation")

	errEmptyOutput = errors.New("empty generator output")
)

// Critiques are the outputs of the two critique agents. A failed agent reads
// AgentUnavailable.
type Critiques struct {
	Architecture string
	Reliability  string
}

// Complete reports whether both agents produced a review.
func (c Critiques) Complete() bool {
	return usable(c.Architecture) && usable(c.Reliability)
}

func usable(review string) bool {
	return review != "" && review != AgentUnavailable
}

// Result is one full pipeline run.
type Result struct {
	Feedback  string
	Scores    domain.ScoreBreakdown
	Critiques Critiques
	// Fallback is true when synthesis output was unusable and the neutral
	// vector was substituted.
	Fallback bool
}

// Score is the scalar mean of the breakdown.
func (r Result) Score() float64 { return r.Scores.Mean() }

type Pipeline struct {
	gen Generator
	log *logger.Logger
}

func NewPipeline(gen Generator, baseLog *logger.Logger) *Pipeline {
	return &Pipeline{gen: gen, log: baseLog.With("service", "EvaluationPipeline")}
}

// Evaluate runs both critique agents concurrently, then the synthesizer over
// their outputs. It never returns an error: failed agents degrade to
// AgentUnavailable and unusable synthesis output to the fallback result.
// Generator calls are detached from ctx cancellation.
func (p *Pipeline) Evaluate(ctx context.Context, task TaskContext, sub Submission) Result {
	ctx, span := tracer.Start(ctx, "evaluation.Pipeline",
		trace.WithAttributes(attribute.Bool("evaluation.has_image", sub.Image != nil)),
	)
	defer span.End()

	return p.Synthesize(ctx, task, sub, p.Critique(ctx, task, sub))
}

// Critique runs the architecture and reliability agents concurrently.
func (p *Pipeline) Critique(ctx context.Context, task TaskContext, sub Submission) Critiques {
	var c Critiques
	var g errgroup.Group
	g.Go(func() error {
		c.Architecture = p.call(ctx, AgentArchitecture, architecturePrompt(task, sub), sub.Image)
		return nil
	})
	g.Go(func() error {
		c.Reliability = p.call(ctx, AgentReliability, reliabilityPrompt(task, sub), sub.Image)
		return nil
	})
	_ = g.Wait()
	return c
}

// Synthesize runs only the synthesizer over critiques produced earlier.
func (p *Pipeline) Synthesize(ctx context.Context, task TaskContext, sub Submission, c Critiques) Result {
	raw := p.call(ctx, AgentSynthesizer, synthesisPrompt(task, sub, c.Architecture, c.Reliability), sub.Image)
	feedback, scores, err := parseSynthesis(raw)
	if err != nil {
		observability.SynthesisFallbacks.Inc()
		trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("evaluation.fallback", true))
		p.log.Error("synthesis output unusable, using fallback scores",
			"error", err,
			"output", logger.Truncate(raw, 300),
		)
		return Result{Feedback: FallbackFeedback, Scores: FallbackScores(), Critiques: c, Fallback: true}
	}
	if feedback == "" {
		feedback = FallbackFeedback
	}
	return Result{Feedback: feedback, Scores: scores, Critiques: c}
}

// ScoreResponse runs the pipeline and returns only the score vector.
func (p *Pipeline) ScoreResponse(ctx context.Context, task TaskContext, sub Submission) domain.ScoreBreakdown {
	return p.Evaluate(ctx, task, sub).Scores
}

// GenerateFeedback runs the pipeline and returns only the narrative.
func (p *Pipeline) GenerateFeedback(ctx context.Context, task TaskContext, sub Submission) string {
	return p.Evaluate(ctx, task, sub).Feedback
}

func (p *Pipeline) call(ctx context.Context, agent, prompt string, img *Image) string {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "evaluation."+agent,
		trace.WithAttributes(attribute.String("evaluation.agent", agent)),
	)
	defer span.End()

	start := time.Now()
	out, err := p.gen.Generate(ctx, Guard(prompt), img)
	observability.AgentLatency.WithLabelValues(agent).Observe(time.Since(start).Seconds())
	if err == nil && out == "" {
		err = errEmptyOutput
	}
	if err != nil {
		observability.AgentCalls.WithLabelValues(agent, "unavailable").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent unavailable")
		p.log.Error("evaluation agent failed",
			"agent", agent,
			"error", err,
			"input", logger.Truncate(prompt, 200),
		)
		return AgentUnavailable
	}
	observability.AgentCalls.WithLabelValues(agent, "ok").Inc()
	return out
}
