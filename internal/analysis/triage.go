package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/omriShneor/engage_ai/internal/llm"
	"github.com/omriShneor/engage_ai/internal/metrics"
	"github.com/omriShneor/engage_ai/internal/prompts"
	"github.com/omriShneor/engage_ai/internal/redact"
)

// Triage priorities
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const fallbackTriageConfidence = 0.3

// TriageInput is an inbound support request to classify
type TriageInput struct {
	TenantID        string `json:"tenantId,omitempty"`
	Content         string `json:"content"`
	Subject         string `json:"subject,omitempty"`
	Channel         string `json:"channel,omitempty"`
	CustomerHistory string `json:"customerHistory,omitempty"`
}

// TriageResult classifies a support request
type TriageResult struct {
	Intent     string   `json:"intent"`
	Category   string   `json:"category"`
	Priority   string   `json:"priority"`
	Urgency    string   `json:"urgency"`
	Entities   []Entity `json:"entities"`
	Language   string   `json:"language"`
	Confidence float64  `json:"confidence"`
	Fallback   bool     `json:"fallback"`
}

// Whole-word keyword lists, so "download" or "terror" never escalate
var (
	urgentKeywords = regexp.MustCompile(`(?i)\b(?:urgent(?:ly)?|asap|emergenc(?:y|ies)|immediately|critical|outages?|down)\b`)
	highKeywords   = regexp.MustCompile(`(?i)\b(?:refund(?:s|ed)?|cancel(?:led|lation|ing)?|broken|errors?|not working|complaints?|angry|furious)\b`)
)

var priorities = map[string]bool{PriorityUrgent: true, PriorityHigh: true, PriorityMedium: true, PriorityLow: true}

// PerformTriage classifies a request in a single backend call and falls back
// to keyword heuristics when the call or its output fails
func (o *Orchestrator) PerformTriage(ctx context.Context, in TriageInput) *TriageResult {
	redacted, mapping := redact.RedactAll(in.Content, in.Subject)

	prompt := prompts.Build("triage", prompts.Args{
		Content:         redacted[0],
		Subject:         redacted[1],
		Channel:         in.Channel,
		CustomerHistory: in.CustomerHistory,
	})

	result, err := o.callTriage(ctx, o.gateway(in.TenantID), prompt)
	if err != nil {
		o.logger.WithFields(logrus.Fields{
			"tenant_id": in.TenantID,
		}).WithError(err).Warn("Triage failed, using keyword heuristics")
		metrics.FallbackTotal.WithLabelValues("triage").Inc()
		return FallbackTriage(in.Subject + " " + in.Content)
	}

	for i := range result.Entities {
		result.Entities[i].Value = redact.Restore(result.Entities[i].Value, mapping)
	}
	return result
}

func (o *Orchestrator) callTriage(ctx context.Context, gateway *llm.Gateway, prompt string) (*TriageResult, error) {
	raw, err := gateway.Call(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result TriageResult
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse triage response: %w", err)
	}

	result.Priority = strings.ToLower(strings.TrimSpace(result.Priority))
	if !priorities[result.Priority] {
		return nil, fmt.Errorf("invalid triage priority %q", result.Priority)
	}
	if result.Intent == "" {
		result.Intent = "general_inquiry"
	}
	if result.Category == "" {
		result.Category = "general"
	}
	if result.Urgency == "" {
		result.Urgency = result.Priority
	}
	if result.Language == "" {
		result.Language = "en"
	}
	if result.Entities == nil {
		result.Entities = []Entity{}
	}
	result.Confidence = clamp(result.Confidence, 0, 1)
	return &result, nil
}

// FallbackTriage classifies priority from fixed keyword lists
func FallbackTriage(text string) *TriageResult {
	priority := KeywordPriority(text)
	return &TriageResult{
		Intent:     "general_inquiry",
		Category:   "general",
		Priority:   priority,
		Urgency:    priority,
		Entities:   []Entity{},
		Language:   "en",
		Confidence: fallbackTriageConfidence,
		Fallback:   true,
	}
}

// KeywordPriority returns urgent, high or medium based on keyword hits
func KeywordPriority(text string) string {
	if urgentKeywords.MatchString(text) {
		return PriorityUrgent
	}
	if highKeywords.MatchString(text) {
		return PriorityHigh
	}
	return PriorityMedium
}
