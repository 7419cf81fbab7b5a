package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEmbedsContent(t *testing.T) {
	args := Args{Content: "where is ORDER_1?"}

	for _, name := range Names() {
		if name == "summarize_thread" {
			continue // renders PriorMessages instead of Content
		}
		t.Run(name, func(t *testing.T) {
			prompt := Build(name, args)
			assert.Contains(t, prompt, "where is ORDER_1?")
			assert.Contains(t, prompt, "STRICT JSON")
		})
	}
}

func TestBuildKeyShapes(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"intent_classification", `"intent"`},
		{"sentiment_analysis", `"sentiment"`},
		{"urgency_detection", `"urgency"`},
		{"language_detection", `"language"`},
		{"entity_extraction", `"entities"`},
		{"response_generation", `"responses"`},
		{"knowledge_suggestions", `"suggestions"`},
		{"escalation_prediction", `"shouldEscalate"`},
		{"satisfaction_prediction", `"predictedScore"`},
		{"churn_risk_assessment", `"riskLevel"`},
		{"sales_coaching", `"callStructure"`},
		{"triage", `"priority"`},
		{"summarize_thread", `"bullets"`},
		{"rewrite_text", `"text"`},
		{"fix_grammar", `"changes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Build(tt.name, Args{Content: "x"}), tt.key)
		})
	}
}

func TestBuildUnknownTemplate(t *testing.T) {
	prompt := Build("mystery", Args{Content: "hello"})
	assert.Contains(t, prompt, `"mystery"`)
	assert.Contains(t, prompt, "hello")
}

func TestBuildEmptyArgs(t *testing.T) {
	// Malformed args render as blanks, never panic
	for _, name := range Names() {
		assert.NotEmpty(t, Build(name, Args{}))
	}
}

func TestBuildOptionalContext(t *testing.T) {
	prompt := Build("sentiment_analysis", Args{
		Content:         "I'm furious",
		Channel:         "email",
		PriorMessages:   []string{"first", "second"},
		CustomerHistory: "VIP since 2019",
	})
	assert.Contains(t, prompt, "Channel: email")
	assert.Contains(t, prompt, "- first\n- second")
	assert.Contains(t, prompt, "VIP since 2019")

	assert.Contains(t, Build("knowledge_suggestions", Args{KnowledgeArticles: []string{"Returns policy"}}), "- Returns policy")
	assert.Contains(t, Build("summarize_thread", Args{MaxBullets: 3}), "at most 3 bullet")
	assert.Contains(t, Build("rewrite_text", Args{Content: "x"}), "professional tone")
	assert.Contains(t, Build("triage", Args{Content: "x"}), "Subject: (none)")
}
