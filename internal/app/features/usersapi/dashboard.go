// internal/app/features/usersapi/dashboard.go
package usersapi

import (
	"net/http"

	"github.com/dalemusser/engagehub/internal/app/system/jsonutil"
)

// dashboard aggregates the numbers the SPA landing page shows. Each block
// comes from its own store aggregation; a failure in any of them fails the
// whole request rather than returning partial numbers.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	usersByRole, err := h.accounts.CountByRole(ctx)
	if err != nil {
		h.errLog.Log(r, "failed to count accounts by role", err)
		jsonutil.InternalError(w, "Failed to load dashboard")
		return
	}
	expertsByAvailability, err := h.experts.CountByAvailability(ctx)
	if err != nil {
		h.errLog.Log(r, "failed to count experts", err)
		jsonutil.InternalError(w, "Failed to load dashboard")
		return
	}
	eventsByStatus, err := h.events.CountByStatus(ctx)
	if err != nil {
		h.errLog.Log(r, "failed to count events", err)
		jsonutil.InternalError(w, "Failed to load dashboard")
		return
	}
	eventsByMonth, err := h.events.CountByMonth(ctx, 6)
	if err != nil {
		h.errLog.Log(r, "failed to aggregate monthly events", err)
		jsonutil.InternalError(w, "Failed to load dashboard")
		return
	}
	upcoming, err := h.events.Upcoming(ctx, 5)
	if err != nil {
		h.errLog.Log(r, "failed to load upcoming events", err)
		jsonutil.InternalError(w, "Failed to load dashboard")
		return
	}
	topExperts, err := h.experts.TopRated(ctx, 5, 1)
	if err != nil {
		h.errLog.Log(r, "failed to load top-rated experts", err)
		jsonutil.InternalError(w, "Failed to load dashboard")
		return
	}
	feedbackStats, err := h.feedback.StatsOverview(ctx)
	if err != nil {
		h.errLog.Log(r, "failed to aggregate feedback stats", err)
		jsonutil.InternalError(w, "Failed to load dashboard")
		return
	}
	recent, err := h.activities.Recent(ctx, 10)
	if err != nil {
		h.errLog.Log(r, "failed to load recent activity", err)
		jsonutil.InternalError(w, "Failed to load dashboard")
		return
	}

	jsonutil.OK(w, map[string]any{
		"users_by_role":           usersByRole,
		"experts_by_availability": expertsByAvailability,
		"events_by_status":        eventsByStatus,
		"events_by_month":         eventsByMonth,
		"upcoming_events":         upcoming,
		"top_experts":             topExperts,
		"feedback":                feedbackStats,
		"recent_activity":         recent,
	})
}
