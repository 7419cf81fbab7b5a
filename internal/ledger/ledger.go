// Package ledger persists orchestrated analyses and derives trend rollups
// from the stored history. Rollups are computed on read; nothing is
// materialized.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/omriShneor/engage_ai/internal/analysis"
	"github.com/omriShneor/engage_ai/internal/database"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// Ledger stores analysis results and answers history queries
type Ledger struct {
	db     *database.DB
	logger *logrus.Logger
	loc    *time.Location
	now    func() time.Time
}

// New creates a ledger over db. Day buckets use loc, UTC when nil.
func New(db *database.DB, logger *logrus.Logger, loc *time.Location) *Ledger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{
		db:     db,
		logger: logger,
		loc:    loc,
		now:    time.Now,
	}
}

// Entry is a stored analysis with its foreign references
type Entry struct {
	ConversationID string          `json:"conversationId,omitempty"`
	CustomerID     string          `json:"customerId,omitempty"`
	CallID         string          `json:"callId,omitempty"`
	Analysis       analysis.Result `json:"analysis"`
}

// Record persists a completed analysis
func (l *Ledger) Record(ctx context.Context, result *analysis.Result, rctx analysis.RequestContext) error {
	if result == nil {
		return errors.New("result is required")
	}

	resultsJSON, err := analysis.EncodeResults(result.Results)
	if err != nil {
		return err
	}

	err = l.db.CreateAnalysisResult(ctx, database.AnalysisRecord{
		ID:             result.AnalysisID,
		TenantID:       rctx.TenantID,
		ConversationID: rctx.ConversationID,
		CustomerID:     rctx.CustomerID,
		CallID:         rctx.CallID,
		Content:        result.Content,
		ResultsJSON:    resultsJSON,
		Confidence:     result.Confidence,
		ProcessingMs:   result.ProcessingTime.Milliseconds(),
		CreatedAt:      result.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to record analysis %s: %w", result.AnalysisID, err)
	}
	return nil
}

// Recent returns a tenant's latest analyses, newest first
func (l *Ledger) Recent(ctx context.Context, tenantID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	records, err := l.db.ListAnalysisResults(ctx, tenantID, time.Time{}, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, Entry{
			ConversationID: rec.ConversationID,
			CustomerID:     rec.CustomerID,
			CallID:         rec.CallID,
			Analysis: analysis.Result{
				AnalysisID:     rec.ID,
				Content:        rec.Content,
				Results:        l.decode(rec),
				ProcessingTime: time.Duration(rec.ProcessingMs) * time.Millisecond,
				Confidence:     rec.Confidence,
				Timestamp:      rec.CreatedAt,
			},
		})
	}
	return entries, nil
}

// decode returns the stored sub-results, empty when the row is unreadable
func (l *Ledger) decode(rec database.AnalysisRecord) map[analysis.Type]any {
	results, err := analysis.DecodeResults(rec.ResultsJSON)
	if err != nil {
		l.logger.WithFields(logrus.Fields{
			"analysis_id": rec.ID,
			"tenant_id":   rec.TenantID,
		}).WithError(err).Warn("Skipping unreadable analysis results")
		return map[analysis.Type]any{}
	}
	return results
}
