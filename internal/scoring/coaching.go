package scoring

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Coaching analysis sources
const (
	SourceLLM       = "llm"
	SourceHeuristic = "heuristic"
)

// CallStructure flags which call stages were detected
type CallStructure struct {
	Intro            bool `json:"intro"`
	Discovery        bool `json:"discovery"`
	ValueProposition bool `json:"valueProposition"`
	NextSteps        bool `json:"nextSteps"`
}

// CoachingMetrics are the measured properties of a transcript
type CoachingMetrics struct {
	WordCount          int           `json:"wordCount"`
	EstimatedQuestions int           `json:"estimatedQuestions"`
	FillerWordRate     float64       `json:"fillerWordRate"`
	ClarityScore       float64       `json:"clarityScore"`
	SentimentBalance   float64       `json:"sentimentBalance"`
	CallStructure      CallStructure `json:"callStructure"`
}

// CoachingAnalysis is a critique of a sales call transcript
type CoachingAnalysis struct {
	Summary            string          `json:"summary"`
	Metrics            CoachingMetrics `json:"metrics"`
	Strengths          []string        `json:"strengths"`
	Improvements       []string        `json:"improvements"`
	RecommendedActions []string        `json:"recommendedActions"`
	Source             string          `json:"source,omitempty"`
}

// Clamp bounds the ratio metrics to [0,1] and initializes nil lists
func (c *CoachingAnalysis) Clamp() {
	c.Metrics.FillerWordRate = clampFloat(c.Metrics.FillerWordRate, 0, 1)
	c.Metrics.ClarityScore = clampFloat(c.Metrics.ClarityScore, 0, 1)
	c.Metrics.SentimentBalance = clampFloat(c.Metrics.SentimentBalance, 0, 1)
	if c.Strengths == nil {
		c.Strengths = []string{}
	}
	if c.Improvements == nil {
		c.Improvements = []string{}
	}
	if c.RecommendedActions == nil {
		c.RecommendedActions = []string{}
	}
}

var singleFillers = map[string]bool{
	"um":        true,
	"uh":        true,
	"like":      true,
	"basically": true,
	"actually":  true,
	"literally": true,
}

var phraseFillers = []string{"you know", "sort of", "kind of", "i mean"}

var positiveWords = map[string]bool{
	"great": true, "thanks": true, "thank": true, "perfect": true, "excellent": true,
	"happy": true, "love": true, "awesome": true, "glad": true, "appreciate": true,
	"helpful": true, "wonderful": true,
}

var negativeWords = map[string]bool{
	"problem": true, "issue": true, "frustrated": true, "unhappy": true, "angry": true,
	"bad": true, "terrible": true, "disappointed": true, "expensive": true, "cancel": true,
	"concern": true, "difficult": true,
}

var (
	introRegex     = regexp.MustCompile(`(?i)\b(hi|hello|good (morning|afternoon|evening)|my name is|thanks for (taking|joining))\b`)
	discoveryRegex = regexp.MustCompile(`(?i)\b(tell me (more )?about|walk me through|what are your|how do you currently|what challenges|pain points?|your goals?|currently using)\b`)
	valueRegex     = regexp.MustCompile(`(?i)\b(our (platform|product|solution|tool)|we help|helps? you|save (you )?(time|money)|roi|return on investment)\b`)
	nextStepsRegex = regexp.MustCompile(`(?i)\b(next steps?|follow[- ]up|schedule|send (you|over)|demo|trial|proposal|book a)\b`)
)

const (
	goodDiscoveryQuestions = 3
	lowFillerRate          = 0.03
	highFillerRate         = 0.08
)

// HeuristicCoaching analyzes a transcript without a language model
func HeuristicCoaching(transcript string) CoachingAnalysis {
	words := tokenize(transcript)
	wordCount := len(words)

	fillers := 0
	positive, negative := 0, 0
	for _, w := range words {
		if singleFillers[w] {
			fillers++
		}
		if positiveWords[w] {
			positive++
		}
		if negativeWords[w] {
			negative++
		}
	}
	joined := " " + strings.Join(words, " ") + " "
	for _, phrase := range phraseFillers {
		fillers += strings.Count(joined, " "+phrase+" ")
	}

	fillerRate := 0.0
	if wordCount > 0 {
		fillerRate = clampFloat(float64(fillers)/float64(wordCount), 0, 1)
	}

	analysis := CoachingAnalysis{
		Metrics: CoachingMetrics{
			WordCount:          wordCount,
			EstimatedQuestions: strings.Count(transcript, "?"),
			FillerWordRate:     fillerRate,
			ClarityScore:       clampFloat(1-0.6*fillerRate, 0, 1),
			SentimentBalance:   float64(positive+1) / float64(positive+negative+2),
			CallStructure: CallStructure{
				Intro:            introRegex.MatchString(transcript),
				Discovery:        discoveryRegex.MatchString(transcript),
				ValueProposition: valueRegex.MatchString(transcript),
				NextSteps:        nextStepsRegex.MatchString(transcript),
			},
		},
		Strengths:          []string{},
		Improvements:       []string{},
		RecommendedActions: []string{},
		Source:             SourceHeuristic,
	}
	applyCoachingRules(&analysis)
	analysis.Summary = coachingSummary(analysis.Metrics)
	return analysis
}

func applyCoachingRules(a *CoachingAnalysis) {
	m := a.Metrics
	strength := func(s string) { a.Strengths = append(a.Strengths, s) }
	improve := func(s, action string) {
		a.Improvements = append(a.Improvements, s)
		a.RecommendedActions = append(a.RecommendedActions, action)
	}

	if m.EstimatedQuestions >= goodDiscoveryQuestions {
		strength(fmt.Sprintf("Good discovery: asked %d questions", m.EstimatedQuestions))
	} else {
		improve("Ask more discovery questions", "Prepare at least three open-ended discovery questions before the call")
	}

	switch {
	case m.FillerWordRate <= lowFillerRate:
		strength("Concise delivery with few filler words")
	case m.FillerWordRate > highFillerRate:
		improve("Reduce filler words", "Practice pausing instead of using filler words")
	}

	switch {
	case m.SentimentBalance >= 0.6:
		strength("Positive tone throughout the call")
	case m.SentimentBalance <= 0.4:
		improve("Conversation leaned negative", "Acknowledge concerns early and restate the value for the customer")
	}

	s := m.CallStructure
	if s.Intro {
		strength("Clear introduction")
	} else {
		improve("Open with a clear introduction", "Start calls by introducing yourself and the purpose of the call")
	}
	if s.Discovery && m.EstimatedQuestions < goodDiscoveryQuestions {
		strength("Explored the customer's situation")
	}
	if !s.Discovery {
		improve("No discovery phase detected", "Ask about the customer's current process and goals")
	}
	if s.ValueProposition {
		strength("Articulated the value proposition")
	} else {
		improve("Value proposition was not stated", "Tie the product to a concrete outcome the customer cares about")
	}
	if s.NextSteps {
		strength("Closed with next steps")
	} else {
		improve("No next steps agreed", "End every call by scheduling a concrete follow-up")
	}
}

func coachingSummary(m CoachingMetrics) string {
	stages := 0
	for _, ok := range []bool{m.CallStructure.Intro, m.CallStructure.Discovery, m.CallStructure.ValueProposition, m.CallStructure.NextSteps} {
		if ok {
			stages++
		}
	}
	return fmt.Sprintf("Heuristic review of a %d-word call: %d questions, filler rate %.1f%%, %d of 4 call stages covered.",
		m.WordCount, m.EstimatedQuestions, m.FillerWordRate*100, stages)
}

// tokenize lowercases and splits on anything that is not a letter, digit or apostrophe
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
