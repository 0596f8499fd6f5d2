// Package usersapi serves account administration and the dashboard:
//
//	GET /api/users/dashboard          - aggregate counts and recent activity
//	GET /api/users                    - list accounts (admin)
//	GET /api/users/{id}               - account detail (self or admin)
//	PUT /api/users/{id}/role          - change role (admin)
//	PUT /api/users/{id}/deactivate    - disable account (admin)
//	GET /api/users/{id}/activities    - account's activity trail (self or admin)
package usersapi

import (
	"errors"
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/engagehub/internal/app/features/errors"
	accountstore "github.com/dalemusser/engagehub/internal/app/store/accounts"
	"github.com/dalemusser/engagehub/internal/app/store/activity"
	eventstore "github.com/dalemusser/engagehub/internal/app/store/events"
	expertstore "github.com/dalemusser/engagehub/internal/app/store/experts"
	feedbackstore "github.com/dalemusser/engagehub/internal/app/store/feedback"
	"github.com/dalemusser/engagehub/internal/app/store/storeutil"
	"github.com/dalemusser/engagehub/internal/app/system/activitylog"
	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/dalemusser/engagehub/internal/app/system/authz"
	"github.com/dalemusser/engagehub/internal/app/system/jsonutil"
	"github.com/dalemusser/engagehub/internal/app/system/normalize"
	"github.com/dalemusser/engagehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Handler struct {
	accounts   *accountstore.Store
	experts    *expertstore.Store
	events     *eventstore.Store
	feedback   *feedbackstore.Store
	activities *activity.Store
	recorder   *activitylog.Recorder
	errLog     *errorsfeature.ErrorLogger
}

func NewHandler(db *mongo.Database, recorder *activitylog.Recorder, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{
		accounts:   accountstore.New(db),
		experts:    expertstore.New(db),
		events:     eventstore.New(db),
		feedback:   feedbackstore.New(db),
		activities: activity.New(db),
		recorder:   recorder,
		errLog:     errLog,
	}
}

// listAccounts returns a paginated, searchable account listing.
func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := bson.M{}
	if search := normalize.QueryParam(q.Get("search")); search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": search, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	if role := normalize.Role(q.Get("role")); role != "" {
		filter["role"] = role
	}
	if status := normalize.Status(q.Get("status")); status != "" {
		filter["status"] = status
	}

	limit := parseInt64(q.Get("limit"), 20)
	page := parseInt64(q.Get("page"), 1)

	total, err := h.accounts.Count(r.Context(), filter)
	if err != nil {
		h.errLog.Log(r, "failed to count accounts", err)
		jsonutil.InternalError(w, "Failed to list users")
		return
	}

	opts := storeutil.Paginate(limit, page).SetSort(bson.D{{Key: "name", Value: 1}})
	accounts, err := h.accounts.Find(r.Context(), filter, opts)
	if err != nil {
		h.errLog.Log(r, "failed to list accounts", err)
		jsonutil.InternalError(w, "Failed to list users")
		return
	}

	jsonutil.OK(w, map[string]any{
		"users": accounts,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// getAccount returns one account. Coordinators may only read their own.
func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid user ID")
		return
	}
	if !authz.AllowOwner(r, id) {
		jsonutil.Forbidden(w, "Access denied. Insufficient permissions.")
		return
	}

	account, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "User not found")
			return
		}
		h.errLog.Log(r, "failed to load account", err)
		jsonutil.InternalError(w, "Failed to load user")
		return
	}
	jsonutil.OK(w, account)
}

// setRole changes an account's role. Admin only; the route enforces the
// role, this handler validates the value and records the change.
func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid user ID")
		return
	}

	var in struct {
		Role string `json:"role"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	role, ok := models.ParseRole(normalize.Role(in.Role))
	if !ok {
		jsonutil.BadRequest(w, "Invalid role")
		return
	}

	// An admin demoting the last active admin would lock everyone out.
	if role != models.RoleAdmin {
		target, err := h.accounts.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				jsonutil.NotFound(w, "User not found")
				return
			}
			h.errLog.Log(r, "failed to load account for role change", err)
			jsonutil.InternalError(w, "Failed to update role")
			return
		}
		if target.Role == models.RoleAdmin {
			admins, err := h.accounts.CountActiveAdmins(r.Context())
			if err != nil {
				h.errLog.Log(r, "failed to count admins", err)
				jsonutil.InternalError(w, "Failed to update role")
				return
			}
			if admins <= 1 {
				jsonutil.BadRequest(w, "Cannot demote the last admin")
				return
			}
		}
	}

	if err := h.accounts.SetRole(r.Context(), id, role); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "User not found")
			return
		}
		h.errLog.Log(r, "failed to set role", err)
		jsonutil.InternalError(w, "Failed to update role")
		return
	}

	current, _ := auth.CurrentAccount(r)
	h.recorder.Updated(r, current.AccountID(), activity.ResourceUser, id,
		"changed role to "+string(role))

	account, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.Log(r, "failed to reload account", err)
		jsonutil.InternalError(w, "Failed to load user")
		return
	}
	jsonutil.OK(w, account)
}

// deactivate disables an account. The record is kept; the verifier
// rejects its credentials on the next request.
func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid user ID")
		return
	}

	current, _ := auth.CurrentAccount(r)
	if current.AccountID() == id {
		jsonutil.BadRequest(w, "Cannot deactivate your own account")
		return
	}

	target, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "User not found")
			return
		}
		h.errLog.Log(r, "failed to load account for deactivation", err)
		jsonutil.InternalError(w, "Failed to deactivate user")
		return
	}
	if target.Role == models.RoleAdmin {
		admins, err := h.accounts.CountActiveAdmins(r.Context())
		if err != nil {
			h.errLog.Log(r, "failed to count admins", err)
			jsonutil.InternalError(w, "Failed to deactivate user")
			return
		}
		if admins <= 1 {
			jsonutil.BadRequest(w, "Cannot deactivate the last admin")
			return
		}
	}

	if err := h.accounts.Deactivate(r.Context(), id); err != nil {
		h.errLog.Log(r, "failed to deactivate account", err)
		jsonutil.InternalError(w, "Failed to deactivate user")
		return
	}

	h.recorder.Updated(r, current.AccountID(), activity.ResourceUser, id,
		"deactivated account")
	jsonutil.OKMessage(w, "User deactivated successfully")
}

// listActivities returns an account's activity trail, newest first.
func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
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
	if page <= 0 {
		page = 1
	}

	records, err := h.activities.GetByUser(r.Context(), id, limit, (page-1)*limit)
	if err != nil {
		h.errLog.Log(r, "failed to load user activities", err)
		jsonutil.InternalError(w, "Failed to load activities")
		return
	}
	total, err := h.activities.CountByFilter(r.Context(), activity.QueryFilter{UserID: &id})
	if err != nil {
		h.errLog.Log(r, "failed to count user activities", err)
		jsonutil.InternalError(w, "Failed to load activities")
		return
	}

	jsonutil.OK(w, map[string]any{
		"activities": records,
		"total":      total,
		"page":       page,
		"limit":      limit,
	})
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
