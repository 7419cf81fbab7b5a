package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/omriShneor/engage_ai/internal/llm"
	"github.com/omriShneor/engage_ai/internal/metrics"
	"github.com/omriShneor/engage_ai/internal/prompts"
	"github.com/omriShneor/engage_ai/internal/redact"
)

const (
	defaultSummaryBullets = 5
	maxSummaryBullets     = 10
	fallbackBulletLength  = 120
)

// ThreadSummary is a bullet summary of a conversation thread
type ThreadSummary struct {
	Bullets  []string `json:"bullets"`
	Fallback bool     `json:"fallback"`
}

// TextResult is rewritten or corrected text
type TextResult struct {
	Text     string   `json:"text"`
	Changes  []string `json:"changes,omitempty"`
	Fallback bool     `json:"fallback"`
}

// SummarizeThread summarizes messages in at most maxBullets bullets.
// On failure the first messages, truncated, stand in for the summary.
func (o *Orchestrator) SummarizeThread(ctx context.Context, tenantID string, messages []string, maxBullets int) *ThreadSummary {
	if maxBullets <= 0 {
		maxBullets = defaultSummaryBullets
	}
	if maxBullets > maxSummaryBullets {
		maxBullets = maxSummaryBullets
	}

	redacted, mapping := redact.RedactAll(messages...)
	prompt := prompts.Build("summarize_thread", prompts.Args{PriorMessages: redacted, MaxBullets: maxBullets})

	var out struct {
		Bullets []string `json:"bullets"`
	}
	err := o.callJSON(ctx, tenantID, prompt, &out)
	if err == nil && len(out.Bullets) == 0 {
		err = errors.New("summary has no bullets")
	}
	if err != nil {
		o.fallback("summarize_thread", tenantID, err)
		return &ThreadSummary{Bullets: fallbackBullets(messages, maxBullets), Fallback: true}
	}

	if len(out.Bullets) > maxBullets {
		out.Bullets = out.Bullets[:maxBullets]
	}
	return &ThreadSummary{Bullets: redact.RestoreAll(out.Bullets, mapping)}
}

// RewriteText rewrites content in the requested tone and format.
// On failure the content is returned unchanged.
func (o *Orchestrator) RewriteText(ctx context.Context, tenantID, content, tone, format string) *TextResult {
	redacted, mapping := redact.Redact(content)
	prompt := prompts.Build("rewrite_text", prompts.Args{Content: redacted, Tone: tone, Format: format})
	return o.transformText(ctx, "rewrite_text", tenantID, content, prompt, mapping)
}

// FixGrammar corrects spelling and grammar.
// On failure the content is returned unchanged.
func (o *Orchestrator) FixGrammar(ctx context.Context, tenantID, content, language string) *TextResult {
	redacted, mapping := redact.Redact(content)
	prompt := prompts.Build("fix_grammar", prompts.Args{Content: redacted, Language: language})
	return o.transformText(ctx, "fix_grammar", tenantID, content, prompt, mapping)
}

func (o *Orchestrator) transformText(ctx context.Context, operation, tenantID, original, prompt string, mapping redact.Mapping) *TextResult {
	var out TextResult
	err := o.callJSON(ctx, tenantID, prompt, &out)
	if err == nil && strings.TrimSpace(out.Text) == "" {
		err = errors.New("response has no text")
	}
	if err != nil {
		o.fallback(operation, tenantID, err)
		return &TextResult{Text: original, Fallback: true}
	}

	out.Text = redact.Restore(out.Text, mapping)
	out.Changes = redact.RestoreAll(out.Changes, mapping)
	out.Fallback = false
	return &out
}

// callJSON sends prompt to the tenant's gateway and decodes the JSON reply into v
func (o *Orchestrator) callJSON(ctx context.Context, tenantID, prompt string, v any) error {
	raw, err := o.gateway(tenantID).Call(ctx, prompt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (o *Orchestrator) fallback(operation, tenantID string, err error) {
	metrics.FallbackTotal.WithLabelValues(operation).Inc()
	o.logger.WithFields(logrus.Fields{
		"operation": operation,
		"tenant_id": tenantID,
	}).WithError(err).Warn("Backend unavailable, using fallback")
}

func fallbackBullets(messages []string, maxBullets int) []string {
	bullets := make([]string, 0, min(len(messages), maxBullets))
	for _, m := range messages {
		if len(bullets) == maxBullets {
			break
		}
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		bullets = append(bullets, truncate(m, fallbackBulletLength))
	}
	return bullets
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
