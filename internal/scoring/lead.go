package scoring

import (
	"fmt"
	"strings"
	"time"
)

// Lead is the subset of a CRM lead the scorer reads
type Lead struct {
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Company          string     `json:"company"`
	Phone            string     `json:"phone"`
	Source           string     `json:"source"`
	Tags             []string   `json:"tags"`
	LastActivityAt   *time.Time `json:"lastActivityAt,omitempty"`
	InteractionCount int        `json:"interactionCount"`
}

// LeadContext carries optional scoring context
type LeadContext struct {
	Now time.Time
}

const leadBase = 50

var sourceWeights = map[string]int{
	"website":  10,
	"referral": 15,
	"campaign": 8,
	"webinar":  6,
	"event":    6,
}

var personalDomains = map[string]bool{
	"gmail":   true,
	"yahoo":   true,
	"hotmail": true,
	"outlook": true,
	"aol":     true,
	"icloud":  true,
	"proton":  true,
	"live":    true,
	"msn":     true,
}

// ComputeLeadScore scores a lead from its profile and recent activity
func ComputeLeadScore(lead Lead, lctx *LeadContext) Score {
	now := time.Now()
	if lctx != nil && !lctx.Now.IsZero() {
		now = lctx.Now
	}

	b := newBuilder(leadBase)

	if strings.TrimSpace(lead.Company) != "" {
		b.add("company", 1, lead.Company, 10)
	} else {
		b.add("company", 1, "missing", -5)
	}

	if strings.TrimSpace(lead.Phone) != "" {
		b.add("phone", 1, "present", 10)
	} else {
		b.add("phone", 1, "missing", 0)
	}

	switch domain := emailDomain(lead.Email); {
	case domain == "":
		b.add("email_domain", 1, "missing", -10)
	case isPersonalDomain(domain):
		b.add("email_domain", 1, domain, -5)
	default:
		b.add("email_domain", 1, domain, 10)
	}

	source := strings.ToLower(strings.TrimSpace(lead.Source))
	switch weight, ok := sourceWeights[source]; {
	case source == "":
		b.add("source", 1, "missing", -3)
	case ok:
		b.add("source", 1, source, weight)
	default:
		b.add("source", 1, source, 3)
	}

	b.add("tags", 2, fmt.Sprintf("%d", len(lead.Tags)), min(8, 2*len(lead.Tags)))

	if lead.LastActivityAt == nil {
		b.add("recency", 1, "no activity", -5)
	} else {
		days := now.Sub(*lead.LastActivityAt).Hours() / 24
		b.add("recency", 1, fmt.Sprintf("%.1f days", days), recencyContribution(days))
	}

	interactions := max(0, lead.InteractionCount)
	b.add("interactions", 2, fmt.Sprintf("%d", interactions), min(12, 2*interactions))

	return b.score()
}

func recencyContribution(days float64) int {
	switch {
	case days <= 3:
		return 12
	case days <= 7:
		return 8
	case days <= 14:
		return 4
	case days <= 30:
		return 1
	default:
		return -5
	}
}

func emailDomain(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

func isPersonalDomain(domain string) bool {
	label, _, _ := strings.Cut(domain, ".")
	return personalDomains[label]
}
