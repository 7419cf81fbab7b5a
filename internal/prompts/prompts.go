package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// SystemPrompt is sent alongside every user prompt
const SystemPrompt = `You are an AI assistant embedded in a customer-engagement platform. You analyze customer messages, support tickets and call transcripts.

Always respond with valid JSON only. Do not wrap the JSON in markdown and do not add commentary.`

// Args carries the structured inputs a template can interpolate.
// Content must already be redacted.
type Args struct {
	Content           string
	Subject           string
	Channel           string
	CustomerHistory   string
	PriorMessages     []string
	KnowledgeArticles []string
	Tone              string
	Format            string
	Language          string
	MaxBullets        int
}

type template func(Args) string

var templates = map[string]template{
	"intent_classification":   intentPrompt,
	"sentiment_analysis":      sentimentPrompt,
	"urgency_detection":       urgencyPrompt,
	"language_detection":      languagePrompt,
	"entity_extraction":       entityPrompt,
	"response_generation":     responsePrompt,
	"knowledge_suggestions":   knowledgePrompt,
	"escalation_prediction":   escalationPrompt,
	"satisfaction_prediction": satisfactionPrompt,
	"churn_risk_assessment":   churnPrompt,
	"sales_coaching":          coachingPrompt,
	"triage":                  triagePrompt,
	"summarize_thread":        summarizePrompt,
	"rewrite_text":            rewritePrompt,
	"fix_grammar":             grammarPrompt,
}

// Build renders the named template. Unknown names render a generic analysis prompt.
func Build(name string, args Args) string {
	if t, ok := templates[name]; ok {
		return t(args)
	}
	return genericPrompt(name, args)
}

// Names returns all template names in sorted order
func Names() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func intentPrompt(a Args) string {
	return fmt.Sprintf(`Classify the primary intent of this customer message.
%s
Message:
"""%s"""

Respond with STRICT JSON: {"intent": "snake_case_intent (e.g. order_status, track_order, place_order, refund_request, billing_question, technical_support, complaint, general_inquiry)", "confidence": 0.0-1.0, "secondaryIntents": ["..."]}`,
		contextBlock(a), a.Content)
}

func sentimentPrompt(a Args) string {
	return fmt.Sprintf(`Analyze the sentiment of this customer message.
%s
Message:
"""%s"""

Respond with STRICT JSON: {"sentiment": "positive"|"negative"|"neutral"|"mixed", "score": -1.0 to 1.0, "confidence": 0.0-1.0, "emotions": ["..."]}`,
		contextBlock(a), a.Content)
}

func urgencyPrompt(a Args) string {
	return fmt.Sprintf(`Determine how urgently this customer message needs a response.

Message:
"""%s"""

Respond with STRICT JSON: {"urgency": "low"|"medium"|"high"|"critical", "confidence": 0.0-1.0, "reasons": ["..."]}`,
		a.Content)
}

func languagePrompt(a Args) string {
	return fmt.Sprintf(`Detect the language of this text.

Text:
"""%s"""

Respond with STRICT JSON: {"language": "ISO 639-1 code", "confidence": 0.0-1.0}`,
		a.Content)
}

func entityPrompt(a Args) string {
	return fmt.Sprintf(`Extract named entities from this customer message. Tokens such as EMAIL_1, PHONE_2 or ORDER_3 are masked values; return them exactly as written.

Message:
"""%s"""

Respond with STRICT JSON: {"entities": [{"type": "person"|"organization"|"product"|"email"|"phone"|"order_id"|"date"|"amount"|"location", "value": "...", "confidence": 0.0-1.0}]}`,
		a.Content)
}

func responsePrompt(a Args) string {
	return fmt.Sprintf(`Draft helpful replies to this customer message. Keep masked tokens (EMAIL_1, PHONE_2, ORDER_3) exactly as written.
%s
Message:
"""%s"""

Respond with STRICT JSON: {"responses": ["best reply", "alternative reply"], "tone": "..."}`,
		contextBlock(a), a.Content)
}

func knowledgePrompt(a Args) string {
	articles := "None available."
	if len(a.KnowledgeArticles) > 0 {
		articles = bulletList(a.KnowledgeArticles)
	}
	return fmt.Sprintf(`Suggest knowledge-base articles that would help answer this customer message.

Candidate articles:
%s

Message:
"""%s"""

Respond with STRICT JSON: {"suggestions": [{"title": "...", "reason": "...", "relevance": 0.0-1.0}]}`,
		articles, a.Content)
}

func escalationPrompt(a Args) string {
	return fmt.Sprintf(`Predict whether this conversation should be escalated to a senior agent or manager.
%s
Message:
"""%s"""

Respond with STRICT JSON: {"shouldEscalate": true|false, "probability": 0.0-1.0, "confidence": 0.0-1.0, "reasons": ["..."]}`,
		contextBlock(a), a.Content)
}

func satisfactionPrompt(a Args) string {
	return fmt.Sprintf(`Predict the customer's satisfaction (CSAT, 1-5) after this interaction.
%s
Message:
"""%s"""

Respond with STRICT JSON: {"predictedScore": 1-5, "confidence": 0.0-1.0, "factors": ["..."]}`,
		contextBlock(a), a.Content)
}

func churnPrompt(a Args) string {
	return fmt.Sprintf(`Assess the risk that this customer churns.
%s
Message:
"""%s"""

Respond with STRICT JSON: {"riskLevel": "low"|"medium"|"high"|"critical", "riskScore": 0.0-1.0, "confidence": 0.0-1.0, "signals": ["..."], "retentionActions": ["..."]}`,
		contextBlock(a), a.Content)
}

func coachingPrompt(a Args) string {
	return fmt.Sprintf(`You are a sales coach. Critique this sales call transcript.

Transcript:
"""%s"""

Respond with STRICT JSON: {"summary": "...", "metrics": {"wordCount": 0, "estimatedQuestions": 0, "fillerWordRate": 0.0-1.0, "clarityScore": 0.0-1.0, "sentimentBalance": 0.0-1.0, "callStructure": {"intro": true|false, "discovery": true|false, "valueProposition": true|false, "nextSteps": true|false}}, "strengths": ["..."], "improvements": ["..."], "recommendedActions": ["..."]}`,
		a.Content)
}

func triagePrompt(a Args) string {
	subject := a.Subject
	if subject == "" {
		subject = "(none)"
	}
	channel := a.Channel
	if channel == "" {
		channel = "unknown"
	}
	return fmt.Sprintf(`Triage this inbound support request.

Channel: %s
Subject: %s
Customer history: %s

Body:
"""%s"""

Respond with STRICT JSON: {"intent": "snake_case_intent", "category": "billing"|"technical"|"shipping"|"account"|"sales"|"general", "priority": "urgent"|"high"|"medium"|"low", "urgency": "critical"|"high"|"medium"|"low", "entities": [{"type": "...", "value": "..."}], "language": "ISO 639-1 code", "confidence": 0.0-1.0}`,
		channel, subject, orNone(a.CustomerHistory), a.Content)
}

func summarizePrompt(a Args) string {
	bullets := a.MaxBullets
	if bullets <= 0 {
		bullets = 5
	}
	return fmt.Sprintf(`Summarize this conversation thread in at most %d bullet points.

Thread:
%s

Respond with STRICT JSON: {"bullets": ["..."]}`,
		bullets, bulletList(a.PriorMessages))
}

func rewritePrompt(a Args) string {
	tone := a.Tone
	if tone == "" {
		tone = "professional"
	}
	format := a.Format
	if format == "" {
		format = "paragraph"
	}
	return fmt.Sprintf(`Rewrite the text below in a %s tone, formatted as %s. Keep masked tokens (EMAIL_1, PHONE_2, ORDER_3) exactly as written.

Text:
"""%s"""

Respond with STRICT JSON: {"text": "..."}`,
		tone, format, a.Content)
}

func grammarPrompt(a Args) string {
	language := a.Language
	if language == "" {
		language = "the text's own language"
	}
	return fmt.Sprintf(`Fix spelling and grammar in the text below, writing in %s. Change nothing else. Keep masked tokens (EMAIL_1, PHONE_2, ORDER_3) exactly as written.

Text:
"""%s"""

Respond with STRICT JSON: {"text": "...", "changes": ["..."]}`,
		language, a.Content)
}

func genericPrompt(name string, a Args) string {
	return fmt.Sprintf(`Perform the analysis %q on this text.

Text:
"""%s"""

Respond with STRICT JSON: {"result": "...", "confidence": 0.0-1.0}`,
		name, a.Content)
}

// contextBlock renders optional conversation context for templates that accept it
func contextBlock(a Args) string {
	var b strings.Builder
	if a.Channel != "" {
		b.WriteString(fmt.Sprintf("\nChannel: %s\n", a.Channel))
	}
	if len(a.PriorMessages) > 0 {
		b.WriteString("\nPrevious messages:\n")
		b.WriteString(bulletList(a.PriorMessages))
	}
	if a.CustomerHistory != "" {
		b.WriteString(fmt.Sprintf("\nCustomer history: %s\n", a.CustomerHistory))
	}
	return b.String()
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)\n"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
