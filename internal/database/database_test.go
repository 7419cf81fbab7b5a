package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisResults(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	for i, tenant := range []string{"acme", "acme", "acme", "globex"} {
		err := db.CreateAnalysisResult(ctx, AnalysisRecord{
			ID:             "an-" + string(rune('a'+i)),
			TenantID:       tenant,
			ConversationID: "conv-1",
			Content:        "hello",
			ResultsJSON:    `{"intent_classification":{"intent":"greeting"}}`,
			Confidence:     0.8,
			ProcessingMs:   120,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	t.Run("list newest first within tenant", func(t *testing.T) {
		records, err := db.ListAnalysisResults(ctx, "acme", time.Time{}, 10)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "an-c", records[0].ID)
		assert.Equal(t, "an-a", records[2].ID)
		assert.Equal(t, "conv-1", records[0].ConversationID)
		assert.Equal(t, "", records[0].CustomerID)
		assert.True(t, records[0].CreatedAt.Equal(base.Add(2*time.Hour)))
	})

	t.Run("since bounds the window", func(t *testing.T) {
		records, err := db.ListAnalysisResults(ctx, "acme", base.Add(90*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "an-c", records[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		records, err := db.ListAnalysisResults(ctx, "acme", time.Time{}, 2)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("get is tenant scoped", func(t *testing.T) {
		rec, err := db.GetAnalysisResult(ctx, "acme", "an-a")
		require.NoError(t, err)
		assert.Equal(t, 0.8, rec.Confidence)
		assert.Equal(t, int64(120), rec.ProcessingMs)

		_, err = db.GetAnalysisResult(ctx, "globex", "an-a")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("count", func(t *testing.T) {
		count, err := db.CountAnalysisResults(ctx, "globex")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := db.CreateAnalysisResult(ctx, AnalysisRecord{ID: "an-a", TenantID: "acme", Content: "dup"})
		assert.Error(t, err)
	})
}

func TestCustomerActivity(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	customer := CreateTestCustomer(t, db, "acme")
	other := CreateTestCustomer(t, db, "acme")

	require.NoError(t, db.CreateConversation(ctx, Conversation{ID: "c1", TenantID: "acme", CustomerID: customer.ID, StartedAt: now.AddDate(0, 0, -2)}))
	require.NoError(t, db.CreateConversation(ctx, Conversation{ID: "c2", TenantID: "acme", CustomerID: customer.ID, StartedAt: now.AddDate(0, 0, -40)}))
	require.NoError(t, db.CreateConversation(ctx, Conversation{ID: "c3", TenantID: "acme", CustomerID: other.ID, StartedAt: now}))

	require.NoError(t, db.CreateTicket(ctx, Ticket{ID: "t1", TenantID: "acme", CustomerID: customer.ID, Status: TicketOpen}))
	require.NoError(t, db.CreateTicket(ctx, Ticket{ID: "t2", TenantID: "acme", CustomerID: customer.ID, Status: TicketPending}))
	require.NoError(t, db.CreateTicket(ctx, Ticket{ID: "t3", TenantID: "acme", CustomerID: customer.ID, Status: TicketResolved, CSATScore: IntPtr(5)}))
	require.NoError(t, db.CreateTicket(ctx, Ticket{ID: "t4", TenantID: "acme", CustomerID: customer.ID, Status: TicketClosed, CSATScore: IntPtr(2)}))

	t.Run("aggregates activity", func(t *testing.T) {
		activity, err := db.CustomerActivity(ctx, "acme", customer.ID, now.AddDate(0, 0, -30))
		require.NoError(t, err)
		assert.Equal(t, 1, activity.ConversationsLast30d)
		assert.Equal(t, 2, activity.OpenTickets)
		assert.Equal(t, 2, activity.ResolvedTickets)
		require.NotNil(t, activity.CSATAverage)
		assert.InDelta(t, 3.5, *activity.CSATAverage, 1e-9)
	})

	t.Run("no ratings leaves csat nil", func(t *testing.T) {
		activity, err := db.CustomerActivity(ctx, "acme", other.ID, now.AddDate(0, 0, -30))
		require.NoError(t, err)
		assert.Equal(t, 1, activity.ConversationsLast30d)
		assert.Nil(t, activity.CSATAverage)
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := db.CustomerActivity(ctx, "globex", customer.ID, now)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid csat rejected", func(t *testing.T) {
		err := db.CreateTicket(ctx, Ticket{ID: "t5", TenantID: "acme", CustomerID: customer.ID, CSATScore: IntPtr(9)})
		assert.Error(t, err)
	})

	t.Run("list customer ids", func(t *testing.T) {
		ids, err := db.ListCustomerIDs(ctx, "acme")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{customer.ID, other.ID}, ids)
	})
}

func TestKnowledgeArticles(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertKnowledgeArticle(ctx, KnowledgeArticle{ID: "kb-1", TenantID: "acme", Title: "Refunds", Content: "How refunds work"}))
	require.NoError(t, db.UpsertKnowledgeArticle(ctx, KnowledgeArticle{ID: "kb-2", TenantID: "acme", Title: "Shipping", Content: "Shipping times"}))
	require.NoError(t, db.UpsertKnowledgeArticle(ctx, KnowledgeArticle{ID: "kb-1", TenantID: "globex", Title: "Other", Content: "Other tenant"}))

	t.Run("upsert replaces", func(t *testing.T) {
		require.NoError(t, db.UpsertKnowledgeArticle(ctx, KnowledgeArticle{ID: "kb-1", TenantID: "acme", Title: "Refund policy", Content: "Updated"}))

		articles, err := db.ListKnowledgeArticles(ctx, "acme")
		require.NoError(t, err)
		require.Len(t, articles, 2)
		assert.Equal(t, "Refund policy", articles[0].Title)
		assert.Equal(t, "Updated", articles[0].Content)
	})

	t.Run("tenants", func(t *testing.T) {
		tenants, err := db.ListKnowledgeTenants(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"acme", "globex"}, tenants)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, db.DeleteKnowledgeArticle(ctx, "acme", "kb-2"))
		articles, err := db.ListKnowledgeArticles(ctx, "acme")
		require.NoError(t, err)
		assert.Len(t, articles, 1)
	})
}
