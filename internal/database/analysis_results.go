package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AnalysisRecord is a persisted orchestrated analysis
type AnalysisRecord struct {
	ID             string
	TenantID       string
	ConversationID string
	CustomerID     string
	CallID         string
	Content        string
	// ResultsJSON is the result map keyed by analysis type
	ResultsJSON  string
	Confidence   float64
	ProcessingMs int64
	CreatedAt    time.Time
}

func (d *DB) CreateAnalysisResult(ctx context.Context, rec AnalysisRecord) error {
	if rec.ResultsJSON == "" {
		rec.ResultsJSON = "{}"
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := d.ExecContext(ctx, `
		INSERT INTO analysis_results (
			id, tenant_id, conversation_id, customer_id, call_id,
			content, results_json, confidence, processing_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.TenantID,
		nullString(rec.ConversationID),
		nullString(rec.CustomerID),
		nullString(rec.CallID),
		rec.Content,
		rec.ResultsJSON,
		rec.Confidence,
		rec.ProcessingMs,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis result: %w", err)
	}
	return nil
}

// GetAnalysisResult returns one tenant's analysis by id
func (d *DB) GetAnalysisResult(ctx context.Context, tenantID, id string) (*AnalysisRecord, error) {
	row := d.QueryRowContext(ctx, `
		SELECT `+analysisColumns+`
		FROM analysis_results
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id)

	rec, err := scanAnalysisRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis result: %w", err)
	}
	return rec, nil
}

// ListAnalysisResults returns a tenant's analyses created at or after since, newest first.
// A zero since lists everything.
func (d *DB) ListAnalysisResults(ctx context.Context, tenantID string, since time.Time, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.QueryContext(ctx, `
		SELECT `+analysisColumns+`
		FROM analysis_results
		WHERE tenant_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, tenantID, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis results: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysisRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis result: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis results: %w", err)
	}

	return records, nil
}

// CountAnalysisResults returns how many analyses a tenant has stored
func (d *DB) CountAnalysisResults(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_results WHERE tenant_id = ?`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count analysis results: %w", err)
	}
	return count, nil
}

const analysisColumns = `id, tenant_id, COALESCE(conversation_id, ''), COALESCE(customer_id, ''), COALESCE(call_id, ''),
			content, results_json, confidence, processing_ms, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysisRecord(s scanner) (*AnalysisRecord, error) {
	var rec AnalysisRecord
	err := s.Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.ConversationID,
		&rec.CustomerID,
		&rec.CallID,
		&rec.Content,
		&rec.ResultsJSON,
		&rec.Confidence,
		&rec.ProcessingMs,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
