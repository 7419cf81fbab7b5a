package database

import (
	"context"
	"fmt"
	"time"
)

// KnowledgeArticle is a tenant's help-center article
type KnowledgeArticle struct {
	ID        string
	TenantID  string
	Title     string
	Content   string
	UpdatedAt time.Time
}

// UpsertKnowledgeArticle creates or replaces an article
func (d *DB) UpsertKnowledgeArticle(ctx context.Context, a KnowledgeArticle) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	_, err := d.ExecContext(ctx, `
		INSERT INTO knowledge_articles (id, tenant_id, title, content, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			updated_at = excluded.updated_at
	`, a.ID, a.TenantID, a.Title, a.Content, a.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert knowledge article: %w", err)
	}
	return nil
}

func (d *DB) ListKnowledgeArticles(ctx context.Context, tenantID string) ([]KnowledgeArticle, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT id, tenant_id, title, content, updated_at
		FROM knowledge_articles
		WHERE tenant_id = ?
		ORDER BY id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge articles: %w", err)
	}
	defer rows.Close()

	var articles []KnowledgeArticle
	for rows.Next() {
		var a KnowledgeArticle
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Title, &a.Content, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge articles: %w", err)
	}
	return articles, nil
}

// ListKnowledgeTenants returns every tenant that has at least one article
func (d *DB) ListKnowledgeTenants(ctx context.Context) ([]string, error) {
	rows, err := d.QueryContext(ctx, `SELECT DISTINCT tenant_id FROM knowledge_articles ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge tenants: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var tenant string
		if err := rows.Scan(&tenant); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge tenants: %w", err)
	}
	return tenants, nil
}

func (d *DB) DeleteKnowledgeArticle(ctx context.Context, tenantID, id string) error {
	_, err := d.ExecContext(ctx, `DELETE FROM knowledge_articles WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge article: %w", err)
	}
	return nil
}
