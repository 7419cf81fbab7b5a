package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/omriShneor/engage_ai/internal/llm"
	"github.com/omriShneor/engage_ai/internal/scoring"
)

// subResult is implemented by every typed sub-result
type subResult interface {
	// Validate checks required fields and normalizes ranges in place
	Validate() error
}

// confident is implemented by sub-results that carry a confidence value
type confident interface {
	ConfidenceValue() (float64, bool)
}

type IntentResult struct {
	Intent           string   `json:"intent"`
	Confidence       *float64 `json:"confidence,omitempty"`
	SecondaryIntents []string `json:"secondaryIntents,omitempty"`
}

type SentimentResult struct {
	Sentiment  string   `json:"sentiment"`
	Score      float64  `json:"score"`
	Confidence *float64 `json:"confidence,omitempty"`
	Emotions   []string `json:"emotions,omitempty"`
}

type UrgencyResult struct {
	Urgency    string   `json:"urgency"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
}

type LanguageResult struct {
	Language   string   `json:"language"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type Entity struct {
	Type       string   `json:"type"`
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type EntityResult struct {
	Entities []Entity `json:"entities"`
}

type ResponseResult struct {
	Responses []string `json:"responses"`
	Tone      string   `json:"tone,omitempty"`
}

type KnowledgeSuggestion struct {
	ArticleID string  `json:"articleId,omitempty"`
	Title     string  `json:"title"`
	Reason    string  `json:"reason,omitempty"`
	Relevance float64 `json:"relevance"`
}

type KnowledgeResult struct {
	Suggestions []KnowledgeSuggestion `json:"suggestions"`
}

type EscalationResult struct {
	ShouldEscalate bool     `json:"shouldEscalate"`
	Probability    float64  `json:"probability"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Reasons        []string `json:"reasons,omitempty"`
}

type SatisfactionResult struct {
	PredictedScore float64  `json:"predictedScore"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Factors        []string `json:"factors,omitempty"`
}

type ChurnResult struct {
	RiskLevel        string   `json:"riskLevel"`
	RiskScore        float64  `json:"riskScore"`
	Confidence       *float64 `json:"confidence,omitempty"`
	Signals          []string `json:"signals,omitempty"`
	RetentionActions []string `json:"retentionActions,omitempty"`
}

// CoachingResult wraps the coaching analysis so it can be validated like any other sub-result
type CoachingResult struct {
	scoring.CoachingAnalysis
}

var (
	sentiments = map[string]bool{"positive": true, "negative": true, "neutral": true, "mixed": true}
	levels     = map[string]bool{"low": true, "medium": true, "high": true, "critical": true}
)

func (r *IntentResult) Validate() error {
	r.Intent = strings.TrimSpace(r.Intent)
	if r.Intent == "" {
		return errors.New("intent is required")
	}
	clampConfidence(r.Confidence)
	return nil
}

func (r *SentimentResult) Validate() error {
	r.Sentiment = strings.ToLower(strings.TrimSpace(r.Sentiment))
	if !sentiments[r.Sentiment] {
		return fmt.Errorf("invalid sentiment %q", r.Sentiment)
	}
	r.Score = clamp(r.Score, -1, 1)
	clampConfidence(r.Confidence)
	return nil
}

func (r *UrgencyResult) Validate() error {
	r.Urgency = strings.ToLower(strings.TrimSpace(r.Urgency))
	if !levels[r.Urgency] {
		return fmt.Errorf("invalid urgency %q", r.Urgency)
	}
	clampConfidence(r.Confidence)
	return nil
}

func (r *LanguageResult) Validate() error {
	r.Language = strings.ToLower(strings.TrimSpace(r.Language))
	if r.Language == "" {
		return errors.New("language is required")
	}
	clampConfidence(r.Confidence)
	return nil
}

func (r *EntityResult) Validate() error {
	if r.Entities == nil {
		return errors.New("entities are required")
	}
	kept := r.Entities[:0]
	for _, e := range r.Entities {
		if strings.TrimSpace(e.Value) == "" {
			continue
		}
		clampConfidence(e.Confidence)
		kept = append(kept, e)
	}
	r.Entities = kept
	return nil
}

func (r *ResponseResult) Validate() error {
	kept := r.Responses[:0]
	for _, resp := range r.Responses {
		if strings.TrimSpace(resp) != "" {
			kept = append(kept, resp)
		}
	}
	r.Responses = kept
	if len(r.Responses) == 0 {
		return errors.New("at least one response is required")
	}
	return nil
}

func (r *KnowledgeResult) Validate() error {
	if r.Suggestions == nil {
		return errors.New("suggestions are required")
	}
	for i := range r.Suggestions {
		r.Suggestions[i].Relevance = clamp(r.Suggestions[i].Relevance, 0, 1)
	}
	return nil
}

func (r *EscalationResult) Validate() error {
	r.Probability = clamp(r.Probability, 0, 1)
	clampConfidence(r.Confidence)
	return nil
}

func (r *SatisfactionResult) Validate() error {
	if r.PredictedScore == 0 {
		return errors.New("predictedScore is required")
	}
	r.PredictedScore = clamp(r.PredictedScore, 1, 5)
	clampConfidence(r.Confidence)
	return nil
}

func (r *ChurnResult) Validate() error {
	r.RiskLevel = strings.ToLower(strings.TrimSpace(r.RiskLevel))
	if !levels[r.RiskLevel] {
		return fmt.Errorf("invalid riskLevel %q", r.RiskLevel)
	}
	r.RiskScore = clamp(r.RiskScore, 0, 1)
	clampConfidence(r.Confidence)
	return nil
}

func (r *CoachingResult) Validate() error {
	if strings.TrimSpace(r.Summary) == "" {
		return errors.New("summary is required")
	}
	r.Clamp()
	if r.Source == "" {
		r.Source = scoring.SourceLLM
	}
	return nil
}

func (r *IntentResult) ConfidenceValue() (float64, bool)       { return deref(r.Confidence) }
func (r *SentimentResult) ConfidenceValue() (float64, bool)    { return deref(r.Confidence) }
func (r *UrgencyResult) ConfidenceValue() (float64, bool)      { return deref(r.Confidence) }
func (r *LanguageResult) ConfidenceValue() (float64, bool)     { return deref(r.Confidence) }
func (r *EscalationResult) ConfidenceValue() (float64, bool)   { return deref(r.Confidence) }
func (r *SatisfactionResult) ConfidenceValue() (float64, bool) { return deref(r.Confidence) }
func (r *ChurnResult) ConfidenceValue() (float64, bool)        { return deref(r.Confidence) }

// newResult allocates the typed sub-result for t
func newResult(t Type) (subResult, error) {
	switch t {
	case TypeIntent:
		return &IntentResult{}, nil
	case TypeSentiment:
		return &SentimentResult{}, nil
	case TypeUrgency:
		return &UrgencyResult{}, nil
	case TypeLanguage:
		return &LanguageResult{}, nil
	case TypeEntities:
		return &EntityResult{}, nil
	case TypeResponses:
		return &ResponseResult{}, nil
	case TypeKnowledge:
		return &KnowledgeResult{}, nil
	case TypeEscalation:
		return &EscalationResult{}, nil
	case TypeSatisfaction:
		return &SatisfactionResult{}, nil
	case TypeChurnRisk:
		return &ChurnResult{}, nil
	case TypeSalesCoaching:
		return &CoachingResult{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalysisType, t)
	}
}

// DecodeResult parses raw model output into the typed sub-result for t and validates it
func DecodeResult(t Type, raw string) (any, error) {
	result, err := newResult(t)
	if err != nil {
		return nil, err
	}

	jsonStr := llm.ExtractJSON(raw)
	if err := json.Unmarshal([]byte(jsonStr), result); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", t, err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s response: %w", t, err)
	}
	return result, nil
}

// EncodeResults serializes a result map keyed by analysis type for storage
func EncodeResults(results map[Type]any) (string, error) {
	keyed := make(map[string]any, len(results))
	for t, v := range results {
		keyed[string(t)] = v
	}
	b, err := json.Marshal(keyed)
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	return string(b), nil
}

// DecodeResults reverses EncodeResults. Unknown keys and undecodable entries are skipped.
func DecodeResults(data string) (map[Type]any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}

	results := make(map[Type]any, len(raw))
	for key, msg := range raw {
		t := Type(key)
		result, err := newResult(t)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(msg, result); err != nil {
			continue
		}
		results[t] = result
	}
	return results, nil
}

// aggregateConfidence is the mean of the sub-results that carry a confidence, or 0.5
func aggregateConfidence(results map[Type]any) float64 {
	var sum float64
	n := 0
	for _, r := range results {
		c, ok := r.(confident)
		if !ok {
			continue
		}
		if v, ok := c.ConfidenceValue(); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0.5
	}
	return clamp(sum/float64(n), 0, 1)
}

func clampConfidence(c *float64) {
	if c != nil {
		*c = clamp(*c, 0, 1)
	}
}

func deref(c *float64) (float64, bool) {
	if c == nil {
		return 0, false
	}
	return *c, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
