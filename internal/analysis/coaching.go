package analysis

import (
	"context"

	"github.com/omriShneor/engage_ai/internal/metrics"
	"github.com/omriShneor/engage_ai/internal/prompts"
	"github.com/omriShneor/engage_ai/internal/redact"
	"github.com/omriShneor/engage_ai/internal/scoring"
)

// Coaching critiques sales call transcripts, preferring the language model
// and falling back to heuristic metrics
type Coaching struct {
	orchestrator *Orchestrator
}

// NewCoaching creates a coaching component on top of an orchestrator
func NewCoaching(o *Orchestrator) *Coaching {
	return &Coaching{orchestrator: o}
}

// AnalyzeTranscript critiques a transcript without persisting anything
func (c *Coaching) AnalyzeTranscript(ctx context.Context, tenantID, transcript string) scoring.CoachingAnalysis {
	o := c.orchestrator
	redacted, _ := redact.Redact(transcript)

	raw, err := o.gateway(tenantID).Call(ctx, prompts.Build(string(TypeSalesCoaching), prompts.Args{Content: redacted}))
	if err == nil {
		var result any
		result, err = DecodeResult(TypeSalesCoaching, raw)
		if err == nil {
			metrics.AnalysisTotal.WithLabelValues(string(TypeSalesCoaching), "ok").Inc()
			return result.(*CoachingResult).CoachingAnalysis
		}
	}

	o.fallback(string(TypeSalesCoaching), tenantID, err)
	metrics.AnalysisTotal.WithLabelValues(string(TypeSalesCoaching), "fallback").Inc()
	return scoring.HeuristicCoaching(transcript)
}

// AnalyzeCall runs a sales_coaching analysis through the orchestrator so the
// result is persisted and published like any other analysis
func (c *Coaching) AnalyzeCall(ctx context.Context, rctx RequestContext, transcript string) (*Result, *scoring.CoachingAnalysis, error) {
	result, err := c.orchestrator.Analyze(ctx, Request{
		Content: transcript,
		Context: &rctx,
		Types:   []Type{TypeSalesCoaching},
	})
	if err != nil {
		return nil, nil, err
	}

	coaching, ok := result.Results[TypeSalesCoaching].(*CoachingResult)
	if !ok {
		heuristic := scoring.HeuristicCoaching(transcript)
		return result, &heuristic, nil
	}
	return result, &coaching.CoachingAnalysis, nil
}
