// Package activityapi serves the audit trail:
//
//	GET    /api/activity                              - query (admin)
//	GET    /api/activity/{id}                         - detail (admin)
//	GET    /api/activity/stats/recent                 - latest entries
//	GET    /api/activity/stats/overview               - volume breakdowns (admin)
//	GET    /api/activity/user/{userId}                - one account's trail (self or admin)
//	GET    /api/activity/resource/{resource}/{resourceId} - one resource's trail
//	DELETE /api/activity/cleanup                      - retention sweep (admin)
//	GET    /api/activity/export/csv                   - CSV export (admin)
package activityapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	errorsfeature "github.com/dalemusser/engagehub/internal/app/features/errors"
	"github.com/dalemusser/engagehub/internal/app/store/activity"
	"github.com/dalemusser/engagehub/internal/app/system/authz"
	"github.com/dalemusser/engagehub/internal/app/system/jsonutil"
	"github.com/dalemusser/engagehub/internal/app/system/normalize"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// defaultRetention bounds the cleanup sweep when the caller does not
// give a cutoff.
const defaultRetention = 90 * 24 * time.Hour

type Handler struct {
	activities *activity.Store
	errLog     *errorsfeature.ErrorLogger
}

func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{
		activities: activity.New(db),
		errLog:     errLog,
	}
}

// list queries the trail with optional filters: user, action, resource,
// start/end time (RFC 3339), limit, page.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter activity.QueryFilter
	if user := normalize.QueryParam(q.Get("user")); user != "" {
		id, err := primitive.ObjectIDFromHex(user)
		if err != nil {
			jsonutil.BadRequest(w, "Invalid user ID")
			return
		}
		filter.UserID = &id
	}
	if action := normalize.Status(q.Get("action")); action != "" {
		if !activity.IsValidAction(action) {
			jsonutil.BadRequest(w, "Invalid action")
			return
		}
		filter.Action = action
	}
	if resource := normalize.Status(q.Get("resource")); resource != "" {
		if !activity.IsValidResource(resource) {
			jsonutil.BadRequest(w, "Invalid resource")
			return
		}
		filter.Resource = resource
	}
	if start := normalize.QueryParam(q.Get("start")); start != "" {
		ts, err := time.Parse(time.RFC3339, start)
		if err != nil {
			jsonutil.BadRequest(w, "Invalid start time")
			return
		}
		filter.StartTime = &ts
	}
	if end := normalize.QueryParam(q.Get("end")); end != "" {
		ts, err := time.Parse(time.RFC3339, end)
		if err != nil {
			jsonutil.BadRequest(w, "Invalid end time")
			return
		}
		filter.EndTime = &ts
	}

	limit := parseInt64(q.Get("limit"), 50)
	page := parseInt64(q.Get("page"), 1)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	total, err := h.activities.CountByFilter(r.Context(), filter)
	if err != nil {
		h.errLog.Log(r, "failed to count activities", err)
		jsonutil.InternalError(w, "Failed to list activities")
		return
	}
	records, err := h.activities.Query(r.Context(), filter)
	if err != nil {
		h.errLog.Log(r, "failed to query activities", err)
		jsonutil.InternalError(w, "Failed to list activities")
		return
	}

	jsonutil.OK(w, map[string]any{
		"activities": records,
		"total":      total,
		"page":       page,
		"limit":      limit,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid activity ID")
		return
	}

	record, err := h.activities.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Activity not found")
			return
		}
		h.errLog.Log(r, "failed to load activity", err)
		jsonutil.InternalError(w, "Failed to load activity")
		return
	}
	jsonutil.OK(w, record)
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	limit := parseInt64(r.URL.Query().Get("limit"), 20)
	records, err := h.activities.Recent(r.Context(), limit)
	if err != nil {
		h.errLog.Log(r, "failed to load recent activities", err)
		jsonutil.InternalError(w, "Failed to load stats")
		return
	}
	jsonutil.OK(w, records)
}

func (h *Handler) statsOverview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.activities.StatsOverview(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to aggregate activity stats", err)
		jsonutil.InternalError(w, "Failed to load stats")
		return
	}
	jsonutil.OK(w, stats)
}

// byUser returns one account's trail. Self or admin only.
func (h *Handler) byUser(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid user ID")
		return
	}
	if !authz.AllowOwner(r, id) {
		jsonutil.Forbidden(w, "Access denied. Insufficient permissions.")
		return
	}

	q := r.URL.Query()
	limit := parseInt64(q.Get("limit"), 50)
	page := parseInt64(q.Get("page"), 1)

	records, err := h.activities.GetByUser(r.Context(), id, limit, (page-1)*limit)
	if err != nil {
		h.errLog.Log(r, "failed to load user activities", err)
		jsonutil.InternalError(w, "Failed to load activities")
		return
	}
	jsonutil.OK(w, records)
}

func (h *Handler) byResource(w http.ResponseWriter, r *http.Request) {
	resource := normalize.Status(chi.URLParam(r, "resource"))
	if !activity.IsValidResource(resource) {
		jsonutil.BadRequest(w, "Invalid resource")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "resourceId"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid resource ID")
		return
	}

	limit := parseInt64(r.URL.Query().Get("limit"), 50)
	records, err := h.activities.GetByResource(r.Context(), resource, id, limit)
	if err != nil {
		h.errLog.Log(r, "failed to load resource activities", err)
		jsonutil.InternalError(w, "Failed to load activities")
		return
	}
	jsonutil.OK(w, records)
}

// cleanup hard-deletes entries older than the given number of days
// (default 90). This is the one place trail entries are actually removed.
func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request) {
	retention := defaultRetention
	if days := normalize.QueryParam(r.URL.Query().Get("days")); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			jsonutil.BadRequest(w, "Invalid retention days")
			return
		}
		retention = time.Duration(n) * 24 * time.Hour
	}

	deleted, err := h.activities.DeleteOlderThan(r.Context(), time.Now().Add(-retention))
	if err != nil {
		h.errLog.Log(r, "failed to clean up activities", err)
		jsonutil.InternalError(w, "Failed to clean up activities")
		return
	}
	jsonutil.OK(w, map[string]any{"deleted": deleted})
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
