package vectorstore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/omriShneor/engage_ai/internal/database"
)

// ArticleSource lists stored knowledge articles
type ArticleSource interface {
	ListKnowledgeArticles(ctx context.Context, tenantID string) ([]database.KnowledgeArticle, error)
	ListKnowledgeTenants(ctx context.Context) ([]string, error)
}

// Indexer loads knowledge articles from the record store into a Store
type Indexer struct {
	source ArticleSource
	store  *Store
	logger *logrus.Logger
}

// NewIndexer creates an indexer
func NewIndexer(source ArticleSource, store *Store, logger *logrus.Logger) *Indexer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Indexer{source: source, store: store, logger: logger}
}

// IndexTenant upserts every article of the tenant and returns how many were indexed
func (i *Indexer) IndexTenant(ctx context.Context, tenantID string) (int, error) {
	articles, err := i.source.ListKnowledgeArticles(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to list knowledge articles: %w", err)
	}

	indexed := 0
	for _, a := range articles {
		doc := Doc{
			ID:       a.ID,
			TenantID: a.TenantID,
			Text:     a.Title + "\n" + a.Content,
			Metadata: map[string]string{"title": a.Title},
		}
		if err := i.store.Upsert(ctx, doc); err != nil {
			i.logger.WithFields(logrus.Fields{
				"tenant_id":  tenantID,
				"article_id": a.ID,
			}).WithError(err).Warn("Failed to index knowledge article")
			continue
		}
		indexed++
	}
	return indexed, nil
}

// IndexAll indexes every tenant that has articles
func (i *Indexer) IndexAll(ctx context.Context) (int, error) {
	tenants, err := i.source.ListKnowledgeTenants(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list knowledge tenants: %w", err)
	}

	total := 0
	for _, tenant := range tenants {
		n, err := i.IndexTenant(ctx, tenant)
		if err != nil {
			return total, err
		}
		total += n
	}

	i.logger.WithFields(logrus.Fields{
		"tenants":  len(tenants),
		"articles": total,
	}).Info("Indexed knowledge articles")
	return total, nil
}
