package analysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/engage_ai/internal/analysis"
	"github.com/omriShneor/engage_ai/internal/clients"
	"github.com/omriShneor/engage_ai/internal/events"
	"github.com/omriShneor/engage_ai/internal/llm"
	"github.com/omriShneor/engage_ai/internal/mocks"
	"github.com/omriShneor/engage_ai/internal/scoring"
	"github.com/omriShneor/engage_ai/internal/vectorstore"
)

// Distinctive phrases of each prompt template
const (
	intentPrompt     = "Classify the primary intent"
	sentimentPrompt  = "Analyze the sentiment"
	urgencyPrompt    = "Determine how urgently"
	languagePrompt   = "Detect the language"
	entityPrompt     = "Extract named entities"
	responsePrompt   = "Draft helpful replies"
	knowledgePrompt  = "Suggest knowledge-base articles"
	coachingPrompt   = "You are a sales coach"
	triagePromptText = "Triage this inbound support request"
)

func promptContaining(phrase string) any {
	return mock.MatchedBy(func(user string) bool { return strings.Contains(user, phrase) })
}

func registryFor(backend llm.Backend) *clients.Registry {
	cfg := clients.RegistryConfig{}
	if backend != nil {
		cfg.Defaults = llm.ProviderConfig{Provider: llm.ProviderOpenAI}
		cfg.Factory = func(llm.ProviderConfig) (llm.Backend, error) { return backend, nil }
	}
	return clients.NewRegistry(cfg)
}

func newOrchestrator(backend llm.Backend) *analysis.Orchestrator {
	return analysis.NewOrchestrator(analysis.Config{Gateways: registryFor(backend)})
}

func TestAnalyze_RequestValidation(t *testing.T) {
	backend := new(mocks.MockBackend)
	o := newOrchestrator(backend)

	_, err := o.Analyze(context.Background(), analysis.Request{Content: "hi"})
	assert.ErrorIs(t, err, analysis.ErrNoAnalysisTypes)

	_, err = o.Analyze(context.Background(), analysis.Request{Content: "hi", Types: []analysis.Type{"tarot_reading"}})
	assert.ErrorIs(t, err, analysis.ErrUnknownAnalysisType)

	backend.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyze_FailureIsolation(t *testing.T) {
	backend := new(mocks.MockBackend)
	backend.On("Complete", mock.Anything, mock.Anything, promptContaining(intentPrompt)).
		Return(`{"intent": "refund_request", "confidence": 0.9}`, nil)
	backend.On("Complete", mock.Anything, mock.Anything, promptContaining(sentimentPrompt)).
		Return("", errors.New("connection reset"))
	backend.On("Complete", mock.Anything, mock.Anything, promptContaining(languagePrompt)).
		Return(`{"language": "en", "confidence": 0.7}`, nil)
	backend.On("Complete", mock.Anything, mock.Anything, promptContaining(urgencyPrompt)).
		Return(`this is not json`, nil)

	o := newOrchestrator(backend)
	result, err := o.Analyze(context.Background(), analysis.Request{
		Content: "I want my money back",
		Types: []analysis.Type{
			analysis.TypeIntent, analysis.TypeSentiment, analysis.TypeLanguage, analysis.TypeUrgency,
		},
	})

	require.NoError(t, err)
	assert.Len(t, result.Results, 2)
	assert.True(t, result.Has(analysis.TypeIntent))
	assert.True(t, result.Has(analysis.TypeLanguage))
	assert.False(t, result.Has(analysis.TypeSentiment))
	assert.False(t, result.Has(analysis.TypeUrgency))
	assert.NotEmpty(t, result.AnalysisID)
	assert.Equal(t, "I want my money back", result.Content)
}

// barrierBackend answers only once every expected call is in flight
type barrierBackend struct {
	arrived sync.WaitGroup
	timeout time.Duration
}

func newBarrierBackend(calls int) *barrierBackend {
	b := &barrierBackend{timeout: 2 * time.Second}
	b.arrived.Add(calls)
	return b
}

func (b *barrierBackend) Name() string       { return "barrier" }
func (b *barrierBackend) Family() llm.Family { return llm.FamilyChat }

func (b *barrierBackend) Complete(_ context.Context, _, user string) (string, error) {
	b.arrived.Done()

	all := make(chan struct{})
	go func() {
		b.arrived.Wait()
		close(all)
	}()

	select {
	case <-all:
	case <-time.After(b.timeout):
		return "", errors.New("sibling calls never started")
	}

	switch {
	case strings.Contains(user, intentPrompt):
		return `{"intent": "order_status", "confidence": 0.9}`, nil
	case strings.Contains(user, sentimentPrompt):
		return `{"sentiment": "neutral", "score": 0, "confidence": 0.7}`, nil
	default:
		return `{"language": "en", "confidence": 0.8}`, nil
	}
}

func TestAnalyze_SubAnalysesRunConcurrently(t *testing.T) {
	backend := newBarrierBackend(3)
	o := newOrchestrator(backend)

	result, err := o.Analyze(context.Background(), analysis.Request{
		Content: "where is my order",
		Types:   []analysis.Type{analysis.TypeIntent, analysis.TypeSentiment, analysis.TypeLanguage},
	})

	require.NoError(t, err)
	assert.Len(t, result.Results, 3)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
}

func TestAnalyze_ConfidenceAggregation(t *testing.T) {
	backend := new(mocks.MockBackend)
	backend.On("Complete", mock.Anything, mock.Anything, promptContaining(intentPrompt)).
		Return(`{"intent": "order_status", "confidence": 0.9}`, nil)
	backend.On("Complete", mock.Anything, mock.Anything, promptContaining(languagePrompt)).
		Return(`{"language": "en", "confidence": 0.7}`, nil)
	backend.On("Complete", mock.Anything, mock.Anything, promptContaining(responsePrompt)).
		Return(`{"responses": ["Your order is on its way."]}`, nil)

	o := newOrchestrator(backend)
	result, err := o.Analyze(context.Background(), analysis.Request{
		Content: "where is my order",
		Types:   []analysis.Type{analysis.TypeIntent, analysis.TypeLanguage, analysis.TypeResponses},
	})

	require.NoError(t, err)
	require.Len(t, result.Results, 3)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
}

func TestAnalyze_DefaultConfidenceWithoutBackend(t *testing.T) {
	o := newOrchestrator(nil)

	result, err := o.Analyze(context.Background(), analysis.Request{
		Content: "hello",
		Types:   []analysis.Type{analysis.TypeIntent, analysis.TypeSentiment},
	})

	require.NoError(t, err)
	assert.Empty(t, result.Results)
	assert.Equal(t, 0.5, result.Confidence)
}

func TestAnalyze_DuplicateTypesCollapse(t *testing.T) {
	backend := new(mocks.MockBackend)
	backend.On("Complete", mock.Anything, mock.Anything, promptContaining(intentPrompt)).
		Return(`{"intent": "greeting", "confidence": 1}`, nil).Once()

	o := newOrchestrator(backend)
	result, err := o.Analyze(context.Background(), analysis.Request{
		Content: "hi there",
		Types:   []analysis.Type{analysis.TypeIntent, analysis.TypeIntent},
	})

	require.NoError(t, err)
	assert.Len(t, result.Results, 1)
	backend.AssertNumberOfCalls(t, "Complete", 1)
}

func TestAnalyze_EndToEndRedaction(t *testing.T) {
	content := "My order #ORD123456 hasn't shipped, call me at 555-123-4567, I'm furious"

	backend := new(mocks.MockBackend)
	noRawPII := mock.MatchedBy(func(user string) bool {
		return !strings.Contains(user, "ORD123456") && !strings.Contains(user, "555-123-4567")
	})
	backend.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(user string) bool {
		return strings.Contains(user, sentimentPrompt) && !strings.Contains(user, "555-123-4567")
	})).Return("```json\n{\"sentiment\": \"negative\", \"score\": -0.9, \"confidence\": 0.95, \"emotions\": [\"anger\"]}\n```", nil)
	backend.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(user string) bool {
		return strings.Contains(user, entityPrompt) && strings.Contains(user, "ORDER_2") && strings.Contains(user, "PHONE_1")
	})).Return(`{"entities": [{"type": "order_id", "value": "ORDER_2", "confidence": 0.9}, {"type": "phone", "value": "PHONE_1"}]}`, nil)

	recorder := new(mocks.MockRecorder)
	recorder.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))
	publisher := new(mocks.MockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Envelope) bool {
		return e.EventType == events.EventTypeAnalysisCompleted && e.TenantID == "acme" && e.EventID != ""
	})).Return(nil)

	o := analysis.NewOrchestrator(analysis.Config{
		Gateways:  registryFor(backend),
		Recorder:  recorder,
		Publisher: publisher,
	})

	result, err := o.Analyze(context.Background(), analysis.Request{
		Content: content,
		Context: &analysis.RequestContext{TenantID: "acme", ConversationID: "conv-9"},
		Types:   []analysis.Type{analysis.TypeSentiment, analysis.TypeEntities},
	})

	require.NoError(t, err, "persistence failure must not fail the analysis")
	assert.Equal(t, content, result.Content)

	sentiment, ok := result.Results[analysis.TypeSentiment].(*analysis.SentimentResult)
	require.True(t, ok)
	assert.Equal(t, "negative", sentiment.Sentiment)

	entities, ok := result.Results[analysis.TypeEntities].(*analysis.EntityResult)
	require.True(t, ok)
	require.Len(t, entities.Entities, 2)
	assert.Equal(t, "order_id", entities.Entities[0].Type)
	assert.Equal(t, "#ORD123456", entities.Entities[0].Value)
	assert.Equal(t, "555-123-4567", entities.Entities[1].Value)

	// Only the sentiment result carries a confidence
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)

	backend.AssertCalled(t, "Complete", mock.Anything, mock.Anything, noRawPII)
	recorder.AssertCalled(t, "Record", mock.Anything, result, analysis.RequestContext{TenantID: "acme", ConversationID: "conv-9"})
	publisher.AssertNumberOfCalls(t, "Publish", 1)

	event := publisher.Calls[0].Arguments.Get(1).(events.Envelope)
	assert.Equal(t, result.AnalysisID, event.AggregateID)
	assert.Equal(t, "conv-9", event.EventData["conversationId"])
	assert.Contains(t, event.EventData["results"], "sentimentAnalysis")
}

func TestAnalyze_PublisherFailureSwallowed(t *testing.T) {
	publisher := new(mocks.MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	o := analysis.NewOrchestrator(analysis.Config{Gateways: registryFor(nil), Publisher: publisher})
	result, err := o.Analyze(context.Background(), analysis.Request{Content: "x", Types: []analysis.Type{analysis.TypeIntent}})

	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestAnalyze_KnowledgeSuggestionsUseVectorStore(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewStore(nil)
	require.NoError(t, store.Upsert(ctx, vectorstore.Doc{ID: "kb-refunds", TenantID: "acme", Text: "refund policy for damaged items", Metadata: map[string]string{"title": "Refund policy"}}))
	require.NoError(t, store.Upsert(ctx, vectorstore.Doc{ID: "kb-other", TenantID: "globex", Text: "refund policy for damaged items"}))

	backend := new(mocks.MockBackend)
	backend.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(user string) bool {
		return strings.Contains(user, knowledgePrompt) && strings.Contains(user, "[kb-refunds] Refund policy") && !strings.Contains(user, "kb-other")
	})).Return(`{"suggestions": [{"articleId": "kb-refunds", "title": "Refund policy", "relevance": 1.4}]}`, nil)

	o := analysis.NewOrchestrator(analysis.Config{Gateways: registryFor(backend), Knowledge: store})
	result, err := o.Analyze(ctx, analysis.Request{
		Content: "can I get a refund for a damaged item",
		Context: &analysis.RequestContext{TenantID: "acme"},
		Types:   []analysis.Type{analysis.TypeKnowledge},
	})

	require.NoError(t, err)
	knowledge, ok := result.Results[analysis.TypeKnowledge].(*analysis.KnowledgeResult)
	require.True(t, ok)
	require.Len(t, knowledge.Suggestions, 1)
	assert.Equal(t, "kb-refunds", knowledge.Suggestions[0].ArticleID)
	assert.Equal(t, 1.0, knowledge.Suggestions[0].Relevance)
}

func TestAnalyze_SalesCoachingFallsBack(t *testing.T) {
	o := newOrchestrator(nil)

	result, err := o.Analyze(context.Background(), analysis.Request{
		Content: "Hello, my name is Sam. What are your goals? How do you currently report? Any blockers?",
		Types:   []analysis.Type{analysis.TypeSalesCoaching},
	})

	require.NoError(t, err)
	coaching, ok := result.Results[analysis.TypeSalesCoaching].(*analysis.CoachingResult)
	require.True(t, ok)
	assert.Equal(t, scoring.SourceHeuristic, coaching.Source)
	assert.Equal(t, 3, coaching.Metrics.EstimatedQuestions)
}

func TestResultMarshalJSON(t *testing.T) {
	confidence := 0.9
	result := analysis.Result{
		AnalysisID: "01HZX",
		Content:    "hi",
		Results: map[analysis.Type]any{
			analysis.TypeSentiment: &analysis.SentimentResult{Sentiment: "positive", Confidence: &confidence},
		},
		ProcessingTime: 1500 * time.Millisecond,
		Confidence:     0.9,
	}

	b, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, float64(1500), decoded["processingTime"])
	assert.Equal(t, "01HZX", decoded["analysisId"])
	results := decoded["results"].(map[string]any)
	assert.Contains(t, results, "sentimentAnalysis")
	assert.Equal(t, "positive", results["sentimentAnalysis"].(map[string]any)["sentiment"])
}

func TestCoaching(t *testing.T) {
	transcript := "Hi, thanks for joining. Tell me about your team? What are your goals? How do you currently plan?"

	t.Run("llm critique preferred", func(t *testing.T) {
		backend := new(mocks.MockBackend)
		backend.On("Complete", mock.Anything, mock.Anything, promptContaining(coachingPrompt)).
			Return(`{"summary": "Strong discovery", "metrics": {"wordCount": 18, "clarityScore": 1.7}, "strengths": ["questions"]}`, nil)

		coaching := analysis.NewCoaching(newOrchestrator(backend))
		result := coaching.AnalyzeTranscript(context.Background(), "acme", transcript)

		assert.Equal(t, "Strong discovery", result.Summary)
		assert.Equal(t, scoring.SourceLLM, result.Source)
		assert.Equal(t, 1.0, result.Metrics.ClarityScore)
		assert.Equal(t, []string{}, result.Improvements)
	})

	t.Run("heuristic fallback", func(t *testing.T) {
		coaching := analysis.NewCoaching(newOrchestrator(nil))
		result := coaching.AnalyzeTranscript(context.Background(), "acme", transcript)

		assert.Equal(t, scoring.SourceHeuristic, result.Source)
		assert.Equal(t, 3, result.Metrics.EstimatedQuestions)
	})

	t.Run("analyze call persists", func(t *testing.T) {
		recorder := new(mocks.MockRecorder)
		recorder.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		o := analysis.NewOrchestrator(analysis.Config{Gateways: registryFor(nil), Recorder: recorder})
		result, coachingResult, err := analysis.NewCoaching(o).AnalyzeCall(context.Background(), analysis.RequestContext{TenantID: "acme", CallID: "call-1"}, transcript)

		require.NoError(t, err)
		require.NotNil(t, coachingResult)
		assert.True(t, result.Has(analysis.TypeSalesCoaching))
		recorder.AssertCalled(t, "Record", mock.Anything, result, analysis.RequestContext{TenantID: "acme", CallID: "call-1"})
	})
}
