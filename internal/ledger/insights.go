package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/omriShneor/engage_ai/internal/analysis"
	"github.com/omriShneor/engage_ai/internal/timeutil"
)

const (
	insightsScanLimit = 1000
	topIntentsLimit   = 5
)

// Effectiveness weights
const (
	clarityWeight   = 0.5
	fillerWeight    = 0.3
	sentimentWeight = 0.2
)

// Insights is a rollup of a tenant's analyses over a time window
type Insights struct {
	TimeRange         string            `json:"timeRange"`
	Since             time.Time         `json:"since"`
	Until             time.Time         `json:"until"`
	TotalAnalyses     int               `json:"totalAnalyses"`
	AverageConfidence float64           `json:"averageConfidence"`
	TopIntents        []IntentCount     `json:"topIntents"`
	SentimentTrend    []SentimentBucket `json:"sentimentTrend"`
	CoachingTrend     []CoachingPoint   `json:"coachingTrend"`
	// CoachingEffectiveness is nil unless both halves of the window hold coaching results
	CoachingEffectiveness *float64 `json:"coachingEffectiveness"`
}

type IntentCount struct {
	Intent string `json:"intent"`
	Count  int    `json:"count"`
}

type SentimentBucket struct {
	Date     string `json:"date"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
	Mixed    int    `json:"mixed"`
	Total    int    `json:"total"`
}

// CoachingPoint averages one day's coaching metrics
type CoachingPoint struct {
	Date             string  `json:"date"`
	Calls            int     `json:"calls"`
	ClarityScore     float64 `json:"clarityScore"`
	FillerWordRate   float64 `json:"fillerWordRate"`
	SentimentBalance float64 `json:"sentimentBalance"`
}

type coachingSums struct {
	n                             int
	clarity, filler, sentimentBal float64
}

func (s *coachingSums) add(m *analysis.CoachingResult) {
	s.n++
	s.clarity += m.Metrics.ClarityScore
	s.filler += m.Metrics.FillerWordRate
	s.sentimentBal += m.Metrics.SentimentBalance
}

func (s coachingSums) mean() (clarity, filler, sentimentBal float64) {
	n := float64(s.n)
	return s.clarity / n, s.filler / n, s.sentimentBal / n
}

// Insights scans at most insightsScanLimit results in the window and reduces them.
// Unknown time ranges fall back to 7d.
func (l *Ledger) Insights(ctx context.Context, tenantID, timeRange string) (*Insights, error) {
	label, window := timeutil.ParseWindow(timeRange)
	until := l.now().UTC()
	since := until.Add(-window)
	midpoint := timeutil.Midpoint(since, until)

	records, err := l.db.ListAnalysisResults(ctx, tenantID, since, insightsScanLimit)
	if err != nil {
		return nil, err
	}

	intents := map[string]int{}
	sentiment := map[string]*SentimentBucket{}
	coaching := map[string]*coachingSums{}
	var firstHalf, secondHalf coachingSums
	var confidenceSum float64

	for _, rec := range records {
		confidenceSum += rec.Confidence
		day := timeutil.DayKey(rec.CreatedAt, l.loc)
		results := l.decode(rec)

		if r, ok := results[analysis.TypeIntent].(*analysis.IntentResult); ok && r.Intent != "" {
			intents[r.Intent]++
		}

		if r, ok := results[analysis.TypeSentiment].(*analysis.SentimentResult); ok {
			b := sentiment[day]
			if b == nil {
				b = &SentimentBucket{Date: day}
				sentiment[day] = b
			}
			b.count(r.Sentiment)
		}

		if r, ok := results[analysis.TypeSalesCoaching].(*analysis.CoachingResult); ok {
			s := coaching[day]
			if s == nil {
				s = &coachingSums{}
				coaching[day] = s
			}
			s.add(r)
			if rec.CreatedAt.Before(midpoint) {
				firstHalf.add(r)
			} else {
				secondHalf.add(r)
			}
		}
	}

	insights := &Insights{
		TimeRange:             label,
		Since:                 since,
		Until:                 until,
		TotalAnalyses:         len(records),
		TopIntents:            topIntents(intents, topIntentsLimit),
		SentimentTrend:        sentimentTrend(sentiment),
		CoachingTrend:         coachingTrend(coaching),
		CoachingEffectiveness: effectiveness(firstHalf, secondHalf),
	}
	if len(records) > 0 {
		insights.AverageConfidence = confidenceSum / float64(len(records))
	}
	return insights, nil
}

func (b *SentimentBucket) count(label string) {
	switch label {
	case "positive":
		b.Positive++
	case "negative":
		b.Negative++
	case "neutral":
		b.Neutral++
	case "mixed":
		b.Mixed++
	}
	b.Total++
}

// topIntents orders by count descending then name ascending
func topIntents(counts map[string]int, limit int) []IntentCount {
	out := make([]IntentCount, 0, len(counts))
	for intent, n := range counts {
		out = append(out, IntentCount{Intent: intent, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Intent < out[j].Intent
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sentimentTrend(buckets map[string]*SentimentBucket) []SentimentBucket {
	out := make([]SentimentBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func coachingTrend(days map[string]*coachingSums) []CoachingPoint {
	out := make([]CoachingPoint, 0, len(days))
	for day, s := range days {
		clarity, filler, sentimentBal := s.mean()
		out = append(out, CoachingPoint{
			Date:             day,
			Calls:            s.n,
			ClarityScore:     clarity,
			FillerWordRate:   filler,
			SentimentBalance: sentimentBal,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// effectiveness weighs how much the second half improved on the first.
// A falling filler rate counts as improvement.
func effectiveness(first, second coachingSums) *float64 {
	if first.n == 0 || second.n == 0 {
		return nil
	}

	c1, f1, s1 := first.mean()
	c2, f2, s2 := second.mean()
	delta := clarityWeight*(c2-c1) + fillerWeight*(f1-f2) + sentimentWeight*(s2-s1)

	score := min(max(delta, 0), 1) * 100
	return &score
}
