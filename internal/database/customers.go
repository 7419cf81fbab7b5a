package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/omriShneor/engage_ai/internal/scoring"
)

// Customer is a tenant's customer record
type Customer struct {
	ID       string
	TenantID string
	Name     string
	Email    string
	Company  string
}

// Ticket statuses
const (
	TicketOpen     = "open"
	TicketPending  = "pending"
	TicketResolved = "resolved"
	TicketClosed   = "closed"
)

// Ticket is a support ticket raised by a customer
type Ticket struct {
	ID         string
	TenantID   string
	CustomerID string
	Subject    string
	Status     string
	// CSATScore is nil until the customer rates the ticket
	CSATScore *int
	CreatedAt time.Time
}

// Conversation is one customer interaction on any channel
type Conversation struct {
	ID         string
	TenantID   string
	CustomerID string
	Channel    string
	StartedAt  time.Time
}

func (d *DB) CreateCustomer(ctx context.Context, c Customer) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO customers (id, tenant_id, name, email, company)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			company = excluded.company
	`, c.ID, c.TenantID, c.Name, c.Email, c.Company)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// ListCustomerIDs returns every customer id of a tenant in id order
func (d *DB) ListCustomerIDs(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := d.QueryContext(ctx, `SELECT id FROM customers WHERE tenant_id = ? ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}
	return ids, nil
}

func (d *DB) CreateConversation(ctx context.Context, c Conversation) error {
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now()
	}
	_, err := d.ExecContext(ctx, `
		INSERT INTO conversations (id, tenant_id, customer_id, channel, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.TenantID, c.CustomerID, c.Channel, c.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (d *DB) CreateTicket(ctx context.Context, t Ticket) error {
	if t.Status == "" {
		t.Status = TicketOpen
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	var csat sql.NullInt64
	if t.CSATScore != nil {
		csat = sql.NullInt64{Int64: int64(*t.CSATScore), Valid: true}
	}
	_, err := d.ExecContext(ctx, `
		INSERT INTO tickets (id, tenant_id, customer_id, subject, status, csat_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.TenantID, t.CustomerID, t.Subject, t.Status, csat, t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// CustomerActivity aggregates what the health scorer needs for one customer.
// Conversations are counted from since onwards; tickets are counted over all time.
func (d *DB) CustomerActivity(ctx context.Context, tenantID, customerID string, since time.Time) (*scoring.Activity, error) {
	var exists int
	err := d.QueryRowContext(ctx, `SELECT 1 FROM customers WHERE tenant_id = ? AND id = ?`, tenantID, customerID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	var activity scoring.Activity
	err = d.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversations
		WHERE tenant_id = ? AND customer_id = ? AND started_at >= ?
	`, tenantID, customerID, since.UTC()).Scan(&activity.ConversationsLast30d)
	if err != nil {
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}

	var csat sql.NullFloat64
	err = d.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status IN ('open', 'pending') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN ('resolved', 'closed') THEN 1 ELSE 0 END), 0),
			AVG(csat_score)
		FROM tickets
		WHERE tenant_id = ? AND customer_id = ?
	`, tenantID, customerID).Scan(&activity.OpenTickets, &activity.ResolvedTickets, &csat)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tickets: %w", err)
	}
	if csat.Valid {
		avg := csat.Float64
		activity.CSATAverage = &avg
	}

	return &activity, nil
}
