package auditlog

import (
	"time"

	"github.com/dalemusser/membersadmin/internal/app/store/audit"
)

// listItem represents a single audit event row.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"eventType"`
	Username      string            `json:"username,omitempty"`
	IP            string            `json:"ip"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failureReason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

func toItems(events []audit.Event) []listItem {
	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			Username:      e.Username,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		})
	}
	return items
}

// listResponse is the body of GET /audit.
type listResponse struct {
	Items      []listItem `json:"items"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageCount  int        `json:"pageCount"`
	RangeStart int        `json:"rangeStart"`
	RangeEnd   int        `json:"rangeEnd"`

	// Filters echoed back, plus the choices for them.
	Category   string           `json:"category,omitempty"`
	EventType  string           `json:"eventType,omitempty"`
	Username   string           `json:"username,omitempty"`
	StartDate  string           `json:"startDate,omitempty"`
	EndDate    string           `json:"endDate,omitempty"`
	Categories []categoryOption `json:"categories"`
	EventTypes []string         `json:"eventTypes"`
}

type categoryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication"},
		{Value: audit.CategorySecurity, Label: "Security"},
		{Value: audit.CategoryUpstream, Label: "Member backend"},
	}
}

// eventTypesForCategory returns the event types recorded under category,
// or every event type when category is empty or unknown.
func eventTypesForCategory(category string) []string {
	auth := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailedInvalid,
		audit.EventLoginFailedUpstream,
		audit.EventLoginFailedRateLimit,
		audit.EventLogout,
	}
	upstream := []string{
		audit.EventSessionClearedUnauthorized,
		audit.EventRosterPaginationExhausted,
	}

	switch category {
	case audit.CategoryAuth:
		return auth
	case audit.CategoryUpstream:
		return upstream
	}
	return append(auth, upstream...)
}
