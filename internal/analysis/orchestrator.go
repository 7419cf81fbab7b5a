// Package analysis fans customer content out across analysis types, routes
// each one through the tenant's language-model gateway and composes the
// typed results.
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/omriShneor/engage_ai/internal/events"
	"github.com/omriShneor/engage_ai/internal/llm"
	"github.com/omriShneor/engage_ai/internal/metrics"
	"github.com/omriShneor/engage_ai/internal/prompts"
	"github.com/omriShneor/engage_ai/internal/redact"
	"github.com/omriShneor/engage_ai/internal/scoring"
	"github.com/omriShneor/engage_ai/internal/vectorstore"
)

// knowledgeTopK is how many articles are retrieved for knowledge suggestions
const knowledgeTopK = 3

// GatewayProvider resolves the gateway serving a tenant
type GatewayProvider interface {
	Gateway(tenantID string) *llm.Gateway
}

// KnowledgeSearcher retrieves a tenant's most relevant articles
type KnowledgeSearcher interface {
	Search(ctx context.Context, tenantID, query string, topK int) ([]vectorstore.Match, error)
}

// Recorder persists completed analyses
type Recorder interface {
	Record(ctx context.Context, result *Result, rctx RequestContext) error
}

// Config wires an Orchestrator. Only Gateways is required.
type Config struct {
	Gateways  GatewayProvider
	Knowledge KnowledgeSearcher
	Recorder  Recorder
	Publisher events.Publisher
	Logger    *logrus.Logger
}

// Orchestrator runs analysis requests
type Orchestrator struct {
	gateways  GatewayProvider
	knowledge KnowledgeSearcher
	recorder  Recorder
	publisher events.Publisher
	logger    *logrus.Logger
	now       func() time.Time
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		gateways:  cfg.Gateways,
		knowledge: cfg.Knowledge,
		recorder:  cfg.Recorder,
		publisher: cfg.Publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Analyze runs every requested analysis type concurrently. A failing type is
// logged and left out of the result; only invalid requests return an error.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*Result, error) {
	types, err := normalizeTypes(req.Types)
	if err != nil {
		return nil, err
	}

	start := o.now()
	analysisID := ulid.Make().String()
	rctx := RequestContext{}
	if req.Context != nil {
		rctx = *req.Context
	}

	log := o.logger.WithFields(logrus.Fields{
		"analysis_id": analysisID,
		"tenant_id":   rctx.TenantID,
	})

	redacted, mapping := redact.Redact(req.Content)
	gateway := o.gateway(rctx.TenantID)
	args := prompts.Args{
		Content:         redacted,
		Channel:         rctx.ChannelType,
		CustomerHistory: rctx.CustomerHistory,
		PriorMessages:   rctx.PriorMessages,
	}

	results := make(map[Type]any, len(types))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, t := range types {
		wg.Add(1)
		go func(t Type) {
			defer wg.Done()

			result, status, err := o.runType(ctx, gateway, t, args, rctx.TenantID, req.Content, mapping)
			metrics.AnalysisTotal.WithLabelValues(string(t), status).Inc()
			if err != nil {
				log.WithField("analysis_type", t).WithError(err).Warn("Sub-analysis failed")
				return
			}

			mu.Lock()
			results[t] = result
			mu.Unlock()
		}(t)
	}

	wg.Wait()

	result := &Result{
		AnalysisID:     analysisID,
		Content:        req.Content,
		Results:        results,
		ProcessingTime: o.now().Sub(start),
		Confidence:     aggregateConfidence(results),
		Timestamp:      o.now().UTC(),
	}
	metrics.AnalysisDuration.Observe(result.ProcessingTime.Seconds())

	log.WithFields(logrus.Fields{
		"requested":  len(types),
		"succeeded":  len(results),
		"confidence": result.Confidence,
	}).Info("Analysis completed")

	o.record(ctx, result, rctx, log)
	o.publish(ctx, result, rctx, log)

	return result, nil
}

// runType performs one sub-analysis and returns the metric status label
func (o *Orchestrator) runType(ctx context.Context, gateway *llm.Gateway, t Type, args prompts.Args, tenantID, original string, mapping redact.Mapping) (any, string, error) {
	if t == TypeKnowledge {
		args.KnowledgeArticles = o.retrieveArticles(ctx, tenantID, original)
	}

	raw, err := gateway.Call(ctx, prompts.Build(string(t), args))
	if err != nil {
		if t == TypeSalesCoaching {
			metrics.FallbackTotal.WithLabelValues(string(t)).Inc()
			return &CoachingResult{CoachingAnalysis: scoring.HeuristicCoaching(original)}, "fallback", nil
		}
		return nil, "failed", err
	}

	result, err := DecodeResult(t, raw)
	if err != nil {
		if t == TypeSalesCoaching {
			metrics.FallbackTotal.WithLabelValues(string(t)).Inc()
			return &CoachingResult{CoachingAnalysis: scoring.HeuristicCoaching(original)}, "fallback", nil
		}
		return nil, "failed", err
	}

	restoreResult(result, mapping)
	return result, "ok", nil
}

// retrieveArticles renders the tenant's closest knowledge articles for the prompt.
// Retrieval failures leave the prompt without candidates.
func (o *Orchestrator) retrieveArticles(ctx context.Context, tenantID, query string) []string {
	if o.knowledge == nil || tenantID == "" {
		return nil
	}
	matches, err := o.knowledge.Search(ctx, tenantID, query, knowledgeTopK)
	if err != nil {
		o.logger.WithField("tenant_id", tenantID).WithError(err).Warn("Knowledge retrieval failed")
		return nil
	}

	articles := make([]string, 0, len(matches))
	for _, m := range matches {
		title := m.Doc.Metadata["title"]
		if title == "" {
			title = m.Doc.ID
		}
		articles = append(articles, fmt.Sprintf("[%s] %s (relevance %.2f)", m.Doc.ID, title, m.Score))
	}
	return articles
}

// restoreResult puts original PII back into values the caller reads verbatim
func restoreResult(result any, mapping redact.Mapping) {
	if len(mapping) == 0 {
		return
	}
	switch r := result.(type) {
	case *EntityResult:
		for i := range r.Entities {
			r.Entities[i].Value = redact.Restore(r.Entities[i].Value, mapping)
		}
	case *ResponseResult:
		r.Responses = redact.RestoreAll(r.Responses, mapping)
	}
}

func (o *Orchestrator) gateway(tenantID string) *llm.Gateway {
	if o.gateways == nil {
		return nil
	}
	return o.gateways.Gateway(tenantID)
}

func (o *Orchestrator) record(ctx context.Context, result *Result, rctx RequestContext, log *logrus.Entry) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(ctx, result, rctx); err != nil {
		log.WithError(err).Error("Failed to persist analysis result")
	}
}

func (o *Orchestrator) publish(ctx context.Context, result *Result, rctx RequestContext, log *logrus.Entry) {
	if o.publisher == nil {
		return
	}

	keyed := make(map[string]any, len(result.Results))
	for t, v := range result.Results {
		keyed[t.ResultKey()] = v
	}
	event := events.NewEnvelope(events.EventTypeAnalysisCompleted, result.AnalysisID, rctx.TenantID, map[string]any{
		"analysisId":     result.AnalysisID,
		"conversationId": rctx.ConversationID,
		"customerId":     rctx.CustomerID,
		"results":        keyed,
		"confidence":     result.Confidence,
	})

	if err := o.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Error("Failed to publish analysis event")
	}
}
