package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type is one category of content analysis
type Type string

const (
	TypeIntent        Type = "intent_classification"
	TypeSentiment     Type = "sentiment_analysis"
	TypeUrgency       Type = "urgency_detection"
	TypeLanguage      Type = "language_detection"
	TypeEntities      Type = "entity_extraction"
	TypeResponses     Type = "response_generation"
	TypeKnowledge     Type = "knowledge_suggestions"
	TypeEscalation    Type = "escalation_prediction"
	TypeSatisfaction  Type = "satisfaction_prediction"
	TypeChurnRisk     Type = "churn_risk_assessment"
	TypeSalesCoaching Type = "sales_coaching"
)

var (
	// ErrNoAnalysisTypes is returned when a request names no analysis types
	ErrNoAnalysisTypes = errors.New("at least one analysis type is required")
	// ErrUnknownAnalysisType is returned for a type outside the closed set
	ErrUnknownAnalysisType = errors.New("unknown analysis type")
)

var resultKeys = map[Type]string{
	TypeIntent:        "intentClassification",
	TypeSentiment:     "sentimentAnalysis",
	TypeUrgency:       "urgencyDetection",
	TypeLanguage:      "languageDetection",
	TypeEntities:      "entityExtraction",
	TypeResponses:     "responseGeneration",
	TypeKnowledge:     "knowledgeSuggestions",
	TypeEscalation:    "escalationPrediction",
	TypeSatisfaction:  "satisfactionPrediction",
	TypeChurnRisk:     "churnRiskAssessment",
	TypeSalesCoaching: "salesCoaching",
}

// AllTypes lists every analysis type in declaration order
func AllTypes() []Type {
	return []Type{
		TypeIntent, TypeSentiment, TypeUrgency, TypeLanguage, TypeEntities, TypeResponses,
		TypeKnowledge, TypeEscalation, TypeSatisfaction, TypeChurnRisk, TypeSalesCoaching,
	}
}

// Valid reports whether t is part of the closed set
func (t Type) Valid() bool {
	_, ok := resultKeys[t]
	return ok
}

// ResultKey is the camelCase key used for t in the result envelope
func (t Type) ResultKey() string {
	return resultKeys[t]
}

// ParseType accepts either the snake_case type or its camelCase result key
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if t := Type(s); t.Valid() {
		return t, nil
	}
	for t, key := range resultKeys {
		if key == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAnalysisType, s)
}

// normalizeTypes collapses duplicates, keeping first-seen order
func normalizeTypes(types []Type) ([]Type, error) {
	if len(types) == 0 {
		return nil, ErrNoAnalysisTypes
	}
	seen := make(map[Type]bool, len(types))
	out := make([]Type, 0, len(types))
	for _, t := range types {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAnalysisType, t)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

// RequestContext identifies where the analyzed content came from
type RequestContext struct {
	ConversationID  string   `json:"conversationId,omitempty"`
	CustomerID      string   `json:"customerId,omitempty"`
	TenantID        string   `json:"tenantId,omitempty"`
	CallID          string   `json:"callId,omitempty"`
	ChannelType     string   `json:"channelType,omitempty"`
	PriorMessages   []string `json:"priorMessages,omitempty"`
	CustomerHistory string   `json:"customerHistory,omitempty"`
}

// Request asks the orchestrator to analyze content
type Request struct {
	Content string          `json:"content"`
	Context *RequestContext `json:"context,omitempty"`
	Types   []Type          `json:"analysisTypes"`
}

// Result is the composed outcome of one orchestrated analysis.
// Results holds only the sub-analyses that succeeded.
type Result struct {
	AnalysisID     string
	Content        string
	Results        map[Type]any
	ProcessingTime time.Duration
	Confidence     float64
	Timestamp      time.Time
}

type resultJSON struct {
	AnalysisID     string         `json:"analysisId"`
	Content        string         `json:"content"`
	Results        map[string]any `json:"results"`
	ProcessingTime int64          `json:"processingTime"`
	Confidence     float64        `json:"confidence"`
	Timestamp      time.Time      `json:"timestamp"`
}

// MarshalJSON keys results by their camelCase key and reports processing time in milliseconds
func (r Result) MarshalJSON() ([]byte, error) {
	results := make(map[string]any, len(r.Results))
	for t, v := range r.Results {
		results[t.ResultKey()] = v
	}
	return json.Marshal(resultJSON{
		AnalysisID:     r.AnalysisID,
		Content:        r.Content,
		Results:        results,
		ProcessingTime: r.ProcessingTime.Milliseconds(),
		Confidence:     r.Confidence,
		Timestamp:      r.Timestamp,
	})
}

// Has reports whether the sub-analysis t is present
func (r *Result) Has(t Type) bool {
	_, ok := r.Results[t]
	return ok
}
