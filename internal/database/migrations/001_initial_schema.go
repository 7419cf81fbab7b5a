package migrations

import (
	"database/sql"
	"fmt"
)

func init() {
	Register(Migration{
		Version: 1,
		Name:    "initial_schema",
		Up:      initialSchema,
	})
}

func initialSchema(tx *sql.Tx) error {
	statements := []string{
		// Orchestrated analysis results, immutable once written
		`CREATE TABLE IF NOT EXISTS analysis_results (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			conversation_id TEXT,
			customer_id TEXT,
			call_id TEXT,
			content TEXT NOT NULL,
			results_json TEXT NOT NULL DEFAULT '{}',
			confidence REAL NOT NULL DEFAULT 0.5,
			processing_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_results_tenant_created ON analysis_results(tenant_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_results_conversation ON analysis_results(conversation_id)`,

		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			name TEXT,
			email TEXT,
			company TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tenant_id, id)
		)`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			channel TEXT,
			started_at DATETIME NOT NULL,
			PRIMARY KEY (tenant_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_customer ON conversations(tenant_id, customer_id, started_at)`,

		`CREATE TABLE IF NOT EXISTS tickets (
			id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			subject TEXT,
			status TEXT NOT NULL DEFAULT 'open' CHECK(status IN ('open', 'pending', 'resolved', 'closed')),
			csat_score INTEGER CHECK(csat_score IS NULL OR csat_score BETWEEN 1 AND 5),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tenant_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_customer ON tickets(tenant_id, customer_id)`,

		`CREATE TABLE IF NOT EXISTS knowledge_articles (
			id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tenant_id, id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("initial schema: %w", err)
		}
	}

	return nil
}
