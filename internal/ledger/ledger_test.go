package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/engage_ai/internal/analysis"
	"github.com/omriShneor/engage_ai/internal/database"
	"github.com/omriShneor/engage_ai/internal/scoring"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New(database.NewTestDB(t), nil, nil)
	l.now = func() time.Time { return testNow }
	return l
}

func decoded(t *testing.T, typ analysis.Type, raw string) any {
	t.Helper()
	r, err := analysis.DecodeResult(typ, raw)
	require.NoError(t, err)
	return r
}

func coachingResult(clarity, filler, sentimentBalance float64) *analysis.CoachingResult {
	return &analysis.CoachingResult{CoachingAnalysis: scoring.CoachingAnalysis{
		Summary: "call review",
		Metrics: scoring.CoachingMetrics{
			ClarityScore:     clarity,
			FillerWordRate:   filler,
			SentimentBalance: sentimentBalance,
		},
		Strengths:          []string{},
		Improvements:       []string{},
		RecommendedActions: []string{},
		Source:             scoring.SourceHeuristic,
	}}
}

func record(t *testing.T, l *Ledger, tenantID, id string, at time.Time, confidence float64, results map[analysis.Type]any) {
	t.Helper()
	err := l.Record(context.Background(), &analysis.Result{
		AnalysisID:     id,
		Content:        "content " + id,
		Results:        results,
		ProcessingTime: 250 * time.Millisecond,
		Confidence:     confidence,
		Timestamp:      at,
	}, analysis.RequestContext{TenantID: tenantID, ConversationID: "conv-" + id})
	require.NoError(t, err)
}

func TestLedger_RecordAndRecent(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	sentiment := decoded(t, analysis.TypeSentiment, `{"sentiment": "negative", "score": -0.6, "confidence": 0.9}`)
	record(t, l, "acme", "a1", testNow.Add(-2*time.Hour), 0.9, map[analysis.Type]any{analysis.TypeSentiment: sentiment})
	record(t, l, "acme", "a2", testNow.Add(-1*time.Hour), 0.5, map[analysis.Type]any{})
	record(t, l, "globex", "g1", testNow, 0.7, map[analysis.Type]any{})

	entries, err := l.Recent(ctx, "acme", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "a2", entries[0].Analysis.AnalysisID)
	assert.Equal(t, "a1", entries[1].Analysis.AnalysisID)
	assert.Equal(t, "conv-a1", entries[1].ConversationID)
	assert.Equal(t, 250*time.Millisecond, entries[1].Analysis.ProcessingTime)
	assert.Equal(t, sentiment, entries[1].Analysis.Results[analysis.TypeSentiment])

	entries, err = l.Recent(ctx, "acme", 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_RecordRequiresResult(t *testing.T) {
	l := newTestLedger(t)
	assert.Error(t, l.Record(context.Background(), nil, analysis.RequestContext{}))
}

func TestLedger_Insights(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	day := func(d, h int) time.Time { return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC) }
	intent := func(name string) any {
		return decoded(t, analysis.TypeIntent, `{"intent": "`+name+`", "confidence": 0.8}`)
	}
	sentiment := func(label string) any {
		return decoded(t, analysis.TypeSentiment, `{"sentiment": "`+label+`", "score": 0}`)
	}

	// First half of the 7d window ends on Mar 7 00:00
	record(t, l, "acme", "r1", day(4, 10), 0.8, map[analysis.Type]any{
		analysis.TypeIntent:        intent("refund_request"),
		analysis.TypeSentiment:     sentiment("negative"),
		analysis.TypeSalesCoaching: coachingResult(0.6, 0.1, 0.4),
	})
	record(t, l, "acme", "r2", day(4, 15), 0.6, map[analysis.Type]any{
		analysis.TypeIntent:    intent("refund_request"),
		analysis.TypeSentiment: sentiment("neutral"),
	})
	record(t, l, "acme", "r3", day(8, 9), 1.0, map[analysis.Type]any{
		analysis.TypeIntent:        intent("shipping_delay"),
		analysis.TypeSentiment:     sentiment("positive"),
		analysis.TypeSalesCoaching: coachingResult(0.9, 0.05, 0.7),
	})
	record(t, l, "acme", "r4", day(9, 9), 0.6, map[analysis.Type]any{
		analysis.TypeIntent: intent("billing_question"),
	})
	// Outside the window and another tenant
	record(t, l, "acme", "old", day(1, 9), 0.1, map[analysis.Type]any{analysis.TypeIntent: intent("legacy")})
	record(t, l, "globex", "g1", day(9, 9), 0.1, map[analysis.Type]any{analysis.TypeIntent: intent("globex_intent")})

	insights, err := l.Insights(ctx, "acme", "7d")
	require.NoError(t, err)

	assert.Equal(t, "7d", insights.TimeRange)
	assert.Equal(t, 4, insights.TotalAnalyses)
	assert.InDelta(t, 0.75, insights.AverageConfidence, 1e-9)

	assert.Equal(t, []IntentCount{
		{Intent: "refund_request", Count: 2},
		{Intent: "billing_question", Count: 1},
		{Intent: "shipping_delay", Count: 1},
	}, insights.TopIntents)

	assert.Equal(t, []SentimentBucket{
		{Date: "2026-03-04", Negative: 1, Neutral: 1, Total: 2},
		{Date: "2026-03-08", Positive: 1, Total: 1},
	}, insights.SentimentTrend)

	require.Len(t, insights.CoachingTrend, 2)
	assert.Equal(t, "2026-03-04", insights.CoachingTrend[0].Date)
	assert.Equal(t, 1, insights.CoachingTrend[0].Calls)
	assert.InDelta(t, 0.9, insights.CoachingTrend[1].ClarityScore, 1e-9)

	// 0.5*0.3 + 0.3*0.05 + 0.2*0.3 = 0.225
	require.NotNil(t, insights.CoachingEffectiveness)
	assert.InDelta(t, 22.5, *insights.CoachingEffectiveness, 1e-9)
}

func TestLedger_InsightsDefaults(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	insights, err := l.Insights(ctx, "acme", "forever")
	require.NoError(t, err)
	assert.Equal(t, "7d", insights.TimeRange)
	assert.Equal(t, 0, insights.TotalAnalyses)
	assert.Equal(t, 0.0, insights.AverageConfidence)
	assert.Empty(t, insights.TopIntents)
	assert.Nil(t, insights.CoachingEffectiveness)

	// Coaching only in the second half
	record(t, l, "acme", "c1", testNow.Add(-time.Hour), 0.5, map[analysis.Type]any{
		analysis.TypeSalesCoaching: coachingResult(0.8, 0.02, 0.6),
	})
	insights, err = l.Insights(ctx, "acme", "24h")
	require.NoError(t, err)
	assert.Equal(t, "24h", insights.TimeRange)
	assert.Len(t, insights.CoachingTrend, 1)
	assert.Nil(t, insights.CoachingEffectiveness)
}

func TestEffectivenessClamped(t *testing.T) {
	worse := coachingSums{}
	worse.add(coachingResult(0.4, 0.2, 0.3))
	better := coachingSums{}
	better.add(coachingResult(0.9, 0.01, 0.8))

	down := effectiveness(better, worse)
	require.NotNil(t, down)
	assert.Equal(t, 0.0, *down)

	huge := coachingSums{}
	huge.add(coachingResult(1, 0, 1))
	zero := coachingSums{}
	zero.add(coachingResult(0, 1, 0))
	up := effectiveness(zero, huge)
	require.NotNil(t, up)
	assert.Equal(t, 100.0, *up)
}

func TestTopIntentsLimit(t *testing.T) {
	counts := map[string]int{"a": 1, "b": 5, "c": 3, "d": 3, "e": 2, "f": 1, "g": 4}
	top := topIntents(counts, 5)
	assert.Equal(t, []IntentCount{
		{Intent: "b", Count: 5},
		{Intent: "g", Count: 4},
		{Intent: "c", Count: 3},
		{Intent: "d", Count: 3},
		{Intent: "e", Count: 2},
	}, top)
}
