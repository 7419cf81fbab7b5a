package analysis

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/omriShneor/engage_ai/internal/metrics"
)

// Action types proposed by auto-reply
const (
	ActionTrackOrder = "track_order"
	ActionPlaceOrder = "place_order"
)

// Action is a structured follow-up proposed alongside a generated reply
type Action struct {
	Type   string            `json:"type"`
	Params map[string]string `json:"params"`
}

// AutoReply is a generated answer with optional actions
type AutoReply struct {
	AnalysisID string   `json:"analysisId,omitempty"`
	Answer     string   `json:"answer"`
	Intent     string   `json:"intent,omitempty"`
	Language   string   `json:"language,omitempty"`
	Actions    []Action `json:"actions"`
	Confidence float64  `json:"confidence"`
	Fallback   bool     `json:"fallback"`
}

var (
	orderNumberRegex = regexp.MustCompile(`\b\d{6,}\b`)
	skuRegex         = regexp.MustCompile(`\b[A-Z]{2,}-?\d{2,}\b`)
	quantityRegex    = regexp.MustCompile(`(?i)\b(?:qty|quantity)\s*[:=]?\s*(\d{1,4})\b|\b(\d{1,4})\s*(?:x\b|units?\b|pcs\b|pieces?\b|of\b)`)
)

var autoReplyTypes = []Type{TypeIntent, TypeResponses, TypeLanguage}

// GenerateAutoReply answers content with the first suggested response.
// When no response can be generated the answer echoes the content.
func (o *Orchestrator) GenerateAutoReply(ctx context.Context, content string, priorMessages []string, rctx *RequestContext) *AutoReply {
	reqCtx := RequestContext{}
	if rctx != nil {
		reqCtx = *rctx
	}
	if len(priorMessages) > 0 {
		reqCtx.PriorMessages = priorMessages
	}

	reply := &AutoReply{Answer: content, Actions: []Action{}}

	result, err := o.Analyze(ctx, Request{Content: content, Context: &reqCtx, Types: autoReplyTypes})
	if err != nil {
		reply.Fallback = true
		return reply
	}
	reply.AnalysisID = result.AnalysisID
	reply.Confidence = result.Confidence

	if r, ok := result.Results[TypeResponses].(*ResponseResult); ok && len(r.Responses) > 0 {
		reply.Answer = r.Responses[0]
	} else {
		reply.Fallback = true
		metrics.FallbackTotal.WithLabelValues("auto_reply").Inc()
	}
	if r, ok := result.Results[TypeLanguage].(*LanguageResult); ok {
		reply.Language = r.Language
	}
	if r, ok := result.Results[TypeIntent].(*IntentResult); ok {
		reply.Intent = r.Intent
		reply.Actions = ExtractActions(r.Intent, content)
	}

	return reply
}

// ExtractActions proposes order actions for order-related intents
func ExtractActions(intent, content string) []Action {
	intent = strings.ToLower(intent)
	actions := []Action{}

	if isTrackingIntent(intent) {
		if number := orderNumberRegex.FindString(content); number != "" {
			actions = append(actions, Action{
				Type:   ActionTrackOrder,
				Params: map[string]string{"orderNumber": number},
			})
		}
	}

	if isPlacementIntent(intent) {
		if sku := skuRegex.FindString(content); sku != "" {
			actions = append(actions, Action{
				Type: ActionPlaceOrder,
				Params: map[string]string{
					"sku":      sku,
					"quantity": strconv.Itoa(extractQuantity(content)),
				},
			})
		}
	}

	return actions
}

func isTrackingIntent(intent string) bool {
	return strings.Contains(intent, "track") || strings.Contains(intent, "order_status") || strings.Contains(intent, "shipping")
}

func isPlacementIntent(intent string) bool {
	return strings.Contains(intent, "place") || strings.Contains(intent, "purchase") || strings.Contains(intent, "buy")
}

func extractQuantity(content string) int {
	m := quantityRegex.FindStringSubmatch(content)
	if m == nil {
		return 1
	}
	for _, group := range m[1:] {
		if group == "" {
			continue
		}
		if n, err := strconv.Atoi(group); err == nil && n > 0 {
			return n
		}
	}
	return 1
}
