package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/membersadmin/internal/app/features/errors"
	"github.com/dalemusser/membersadmin/internal/app/store/audit"
	"github.com/dalemusser/membersadmin/internal/app/system/paging"
	"github.com/dalemusser/membersadmin/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
)

const (
	pageSize        = 50
	dateLayout      = "2006-01-02"
	failedLoginsMax = 100
)

func (h *Handler) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Events == nil {
			uierrors.Write(w, http.StatusServiceUnavailable, uierrors.CodeUnavailable,
				"The audit log is not enabled on this server.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServeList handles GET /audit - lists audit events with filtering.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	category := strings.TrimSpace(query.Get(r, "category"))
	eventType := strings.TrimSpace(query.Get(r, "event_type"))
	username := strings.TrimSpace(query.Get(r, "username"))
	startDate := strings.TrimSpace(query.Get(r, "start_date"))
	endDate := strings.TrimSpace(query.Get(r, "end_date"))
	page := paging.PageValue(query.Get(r, "page"))

	filter := audit.QueryFilter{
		Username:  username,
		Category:  category,
		EventType: eventType,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	if startDate != "" {
		if t, err := time.Parse(dateLayout, startDate); err == nil {
			filter.StartTime = &t
		}
	}
	if endDate != "" {
		if t, err := time.Parse(dateLayout, endDate); err == nil {
			// End of day
			endOfDay := t.Add(24*time.Hour - time.Second)
			filter.EndTime = &endOfDay
		}
	}

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit query failed", err, "Unable to load the audit log.")
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit count failed", err, "Unable to load the audit log.")
		return
	}

	items := toItems(events)
	rng := paging.ComputeRange(page, pageSize, len(items), int(total))

	uierrors.WriteJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageCount:  paging.PageCount(int(total), pageSize),
		RangeStart: rng.Start,
		RangeEnd:   rng.End,
		Category:   category,
		EventType:  eventType,
		Username:   username,
		StartDate:  startDate,
		EndDate:    endDate,
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(category),
	})
}

// ServeFailedLogins handles GET /audit/failed-logins?hours=N, the recent
// failed sign-in attempts (default the last 24 hours).
func (h *Handler) ServeFailedLogins(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if s := query.Get(r, "hours"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			uierrors.RenderBadRequest(w, "hours must be a positive whole number.")
			return
		}
		hours = n
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit failed logins")
	defer cancel()

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	events, err := h.Events.GetFailedLogins(ctx, since, failedLoginsMax)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed logins query failed", err, "Unable to load the audit log.")
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, struct {
		Since time.Time  `json:"since"`
		Items []listItem `json:"items"`
	}{Since: since, Items: toItems(events)})
}
