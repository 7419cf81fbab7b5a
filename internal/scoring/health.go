package scoring

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Risk levels for customer health
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

const (
	healthBase   = 60
	activityDays = 30
)

// Activity is the aggregated record-store view of one customer
type Activity struct {
	ConversationsLast30d int
	OpenTickets          int
	ResolvedTickets      int
	// CSATAverage is nil when the customer has no rated tickets
	CSATAverage *float64
}

// ActivityRepository reads the customer activity the health scorer needs
type ActivityRepository interface {
	CustomerActivity(ctx context.Context, tenantID, customerID string, since time.Time) (*Activity, error)
}

// HealthScore is a customer health score with its churn risk band
type HealthScore struct {
	Score
	CustomerID string `json:"customerId"`
	RiskLevel  string `json:"riskLevel"`
}

// HealthScorer computes customer health from stored activity
type HealthScorer struct {
	repo   ActivityRepository
	logger *logrus.Logger
	now    func() time.Time
}

// NewHealthScorer creates a health scorer
func NewHealthScorer(repo ActivityRepository, logger *logrus.Logger) *HealthScorer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HealthScorer{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ComputeCustomerHealth scores one customer of a tenant
func (h *HealthScorer) ComputeCustomerHealth(ctx context.Context, tenantID, customerID string) (*HealthScore, error) {
	since := h.now().AddDate(0, 0, -activityDays)
	activity, err := h.repo.CustomerActivity(ctx, tenantID, customerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity for customer %s: %w", customerID, err)
	}

	score := ScoreActivity(*activity)
	return &HealthScore{
		Score:      score,
		CustomerID: customerID,
		RiskLevel:  RiskLevelFor(score.Score),
	}, nil
}

// ComputeCustomerHealthBatch scores many customers concurrently.
// Customers whose activity cannot be loaded are logged and left out.
func (h *HealthScorer) ComputeCustomerHealthBatch(ctx context.Context, tenantID string, customerIDs []string) map[string]*HealthScore {
	results := make(map[string]*HealthScore, len(customerIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range customerIDs {
		wg.Add(1)
		go func(customerID string) {
			defer wg.Done()
			health, err := h.ComputeCustomerHealth(ctx, tenantID, customerID)
			if err != nil {
				h.logger.WithFields(logrus.Fields{
					"tenant_id":   tenantID,
					"customer_id": customerID,
				}).WithError(err).Warn("Failed to compute customer health")
				return
			}
			mu.Lock()
			results[customerID] = health
			mu.Unlock()
		}(id)
	}

	wg.Wait()
	return results
}

// ScoreActivity applies the health rules to already aggregated activity
func ScoreActivity(a Activity) Score {
	b := newBuilder(healthBase)

	conversations := max(0, a.ConversationsLast30d)
	b.add("conversations_30d", 3, fmt.Sprintf("%d", conversations), min(15, 3*conversations))

	open := max(0, a.OpenTickets)
	b.add("open_tickets", -5, fmt.Sprintf("%d", open), -min(20, 5*open))

	resolved := max(0, a.ResolvedTickets)
	b.add("resolved_tickets", 0.5, fmt.Sprintf("%d", resolved), min(10, resolved/2))

	if a.CSATAverage != nil {
		avg := clampFloat(*a.CSATAverage, 1, 5)
		scaled := roundHalfUp(((avg - 1) / 4) * 100)
		b.add("csat", 0.2, fmt.Sprintf("%.2f", avg), int(roundHalfUp((scaled-50)/5)))
	} else {
		b.add("csat", 0.2, "no ratings", 0)
	}

	return b.score()
}

// RiskLevelFor bands a health score into a churn risk level
func RiskLevelFor(score int) string {
	switch {
	case score >= 75:
		return RiskLow
	case score >= 55:
		return RiskMedium
	case score >= 35:
		return RiskHigh
	default:
		return RiskCritical
	}
}

func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
