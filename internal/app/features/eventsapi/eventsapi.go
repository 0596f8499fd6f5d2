// Package eventsapi serves event scheduling and registration:
//
//	GET    /api/events                          - list (filters, pagination)
//	POST   /api/events                          - create (caller becomes coordinator)
//	GET    /api/events/{id}                     - detail
//	PUT    /api/events/{id}                     - update (coordinator or admin)
//	DELETE /api/events/{id}                     - soft delete (coordinator or admin)
//	PUT    /api/events/{id}/status              - lifecycle change (coordinator or admin)
//	POST   /api/events/{id}/register            - capacity-checked registration
//	GET    /api/events/stats/upcoming           - next scheduled events
//	GET    /api/events/stats/by-coordinator/{id} - coordinator summary
//
// The event's coordinator owns it: only the coordinator or an admin may
// mutate it. Registration is open to any authenticated account and is
// atomic against capacity.
package eventsapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	errorsfeature "github.com/dalemusser/engagehub/internal/app/features/errors"
	"github.com/dalemusser/engagehub/internal/app/store/activity"
	eventstore "github.com/dalemusser/engagehub/internal/app/store/events"
	expertstore "github.com/dalemusser/engagehub/internal/app/store/experts"
	"github.com/dalemusser/engagehub/internal/app/store/storeutil"
	"github.com/dalemusser/engagehub/internal/app/system/activitylog"
	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/dalemusser/engagehub/internal/app/system/authz"
	"github.com/dalemusser/engagehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/engagehub/internal/app/system/jsonutil"
	"github.com/dalemusser/engagehub/internal/app/system/normalize"
	"github.com/dalemusser/engagehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Handler struct {
	events   *eventstore.Store
	experts  *expertstore.Store
	recorder *activitylog.Recorder
	errLog   *errorsfeature.ErrorLogger
}

func NewHandler(db *mongo.Database, recorder *activitylog.Recorder, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{
		events:   eventstore.New(db),
		experts:  expertstore.New(db),
		recorder: recorder,
		errLog:   errLog,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := bson.M{}
	if search := normalize.QueryParam(q.Get("search")); search != "" {
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": search, "$options": "i"}},
			bson.M{"venue": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	if typ := normalize.Status(q.Get("type")); typ != "" {
		filter["type"] = typ
	}
	if status := normalize.Status(q.Get("status")); status != "" {
		filter["status"] = status
	}
	if coordinator := normalize.QueryParam(q.Get("coordinator")); coordinator != "" {
		id, err := primitive.ObjectIDFromHex(coordinator)
		if err != nil {
			jsonutil.BadRequest(w, "Invalid coordinator ID")
			return
		}
		filter["coordinator_id"] = id
	}
	if expert := normalize.QueryParam(q.Get("expert")); expert != "" {
		id, err := primitive.ObjectIDFromHex(expert)
		if err != nil {
			jsonutil.BadRequest(w, "Invalid expert ID")
			return
		}
		filter["expert_id"] = id
	}

	limit := parseInt64(q.Get("limit"), 20)
	page := parseInt64(q.Get("page"), 1)

	total, err := h.events.Count(r.Context(), filter)
	if err != nil {
		h.errLog.Log(r, "failed to count events", err)
		jsonutil.InternalError(w, "Failed to list events")
		return
	}

	opts := storeutil.Paginate(limit, page).
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "start_time", Value: -1}})
	events, err := h.events.Find(r.Context(), filter, opts)
	if err != nil {
		h.errLog.Log(r, "failed to list events", err)
		jsonutil.InternalError(w, "Failed to list events")
		return
	}

	jsonutil.OK(w, map[string]any{
		"events": events,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid event ID")
		return
	}

	event, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Event not found")
			return
		}
		h.errLog.Log(r, "failed to load event", err)
		jsonutil.InternalError(w, "Failed to load event")
		return
	}
	jsonutil.OK(w, event)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title        string    `json:"title"`
		Description  string    `json:"description"`
		Type         string    `json:"type"`
		ExpertID     string    `json:"expert_id"`
		Date         time.Time `json:"date"`
		StartTime    string    `json:"start_time"`
		EndTime      string    `json:"end_time"`
		Venue        string    `json:"venue"`
		Capacity     int       `json:"capacity"`
		Requirements string    `json:"requirements"`
		Materials    []string  `json:"materials"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}

	title := htmlsanitize.PlainText(in.Title)
	if title == "" {
		jsonutil.BadRequest(w, "Title is required")
		return
	}
	if !models.IsValidEventType(normalize.Status(in.Type)) {
		jsonutil.BadRequest(w, "Invalid event type")
		return
	}
	if in.Date.IsZero() {
		jsonutil.BadRequest(w, "Date is required")
		return
	}
	if in.Capacity <= 0 {
		jsonutil.BadRequest(w, "Capacity must be positive")
		return
	}

	expertID, err := primitive.ObjectIDFromHex(in.ExpertID)
	if err != nil {
		jsonutil.BadRequest(w, "Invalid expert ID")
		return
	}
	// The expert must exist and be active.
	if _, err := h.experts.GetByID(r.Context(), expertID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.BadRequest(w, "Expert not found")
			return
		}
		h.errLog.Log(r, "failed to resolve expert for event", err)
		jsonutil.InternalError(w, "Failed to create event")
		return
	}

	current, _ := auth.CurrentAccount(r)
	coordinatorID := current.AccountID()

	event := models.Event{
		Title:         title,
		Description:   htmlsanitize.PlainText(in.Description),
		Type:          normalize.Status(in.Type),
		ExpertID:      expertID,
		CoordinatorID: coordinatorID,
		Date:          in.Date,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		Venue:         htmlsanitize.PlainText(in.Venue),
		Capacity:      in.Capacity,
		Requirements:  htmlsanitize.PlainText(in.Requirements),
		Materials:     in.Materials,
		CreatedBy:     coordinatorID,
	}

	created, err := h.events.Create(r.Context(), event)
	if err != nil {
		h.errLog.Log(r, "failed to create event", err)
		jsonutil.InternalError(w, "Failed to create event")
		return
	}

	h.recorder.Created(r, coordinatorID, activity.ResourceEvent, created.ID,
		"scheduled event "+created.Title)
	jsonutil.Created(w, created)
}

// loadOwnedEvent resolves the event and enforces coordinator ownership.
// It writes the response on failure and returns nil.
func (h *Handler) loadOwnedEvent(w http.ResponseWriter, r *http.Request) *models.Event {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid event ID")
		return nil
	}

	event, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Event not found")
			return nil
		}
		h.errLog.Log(r, "failed to load event", err)
		jsonutil.InternalError(w, "Failed to load event")
		return nil
	}

	if !authz.AllowOwner(r, event.CoordinatorID) {
		jsonutil.Forbidden(w, "Access denied. Insufficient permissions.")
		return nil
	}
	return event
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	event := h.loadOwnedEvent(w, r)
	if event == nil {
		return
	}

	var in struct {
		Title        *string    `json:"title"`
		Description  *string    `json:"description"`
		Type         *string    `json:"type"`
		ExpertID     *string    `json:"expert_id"`
		Date         *time.Time `json:"date"`
		StartTime    *string    `json:"start_time"`
		EndTime      *string    `json:"end_time"`
		Venue        *string    `json:"venue"`
		Capacity     *int       `json:"capacity"`
		Requirements *string    `json:"requirements"`
		Materials    *[]string  `json:"materials"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}

	upd := eventstore.UpdateInput{
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Materials: in.Materials,
	}
	if in.Title != nil {
		title := htmlsanitize.PlainText(*in.Title)
		if title == "" {
			jsonutil.BadRequest(w, "Title cannot be empty")
			return
		}
		upd.Title = &title
	}
	if in.Description != nil {
		desc := htmlsanitize.PlainText(*in.Description)
		upd.Description = &desc
	}
	if in.Type != nil {
		typ := normalize.Status(*in.Type)
		if !models.IsValidEventType(typ) {
			jsonutil.BadRequest(w, "Invalid event type")
			return
		}
		upd.Type = &typ
	}
	if in.Venue != nil {
		venue := htmlsanitize.PlainText(*in.Venue)
		upd.Venue = &venue
	}
	if in.Requirements != nil {
		req := htmlsanitize.PlainText(*in.Requirements)
		upd.Requirements = &req
	}
	if in.Capacity != nil {
		if *in.Capacity <= 0 {
			jsonutil.BadRequest(w, "Capacity must be positive")
			return
		}
		// Capacity can never drop below what is already registered.
		if *in.Capacity < event.RegisteredCount {
			jsonutil.BadRequest(w, "Capacity cannot be less than registered attendees")
			return
		}
		upd.Capacity = in.Capacity
	}
	if in.ExpertID != nil {
		expertID, err := primitive.ObjectIDFromHex(*in.ExpertID)
		if err != nil {
			jsonutil.BadRequest(w, "Invalid expert ID")
			return
		}
		if _, err := h.experts.GetByID(r.Context(), expertID); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				jsonutil.BadRequest(w, "Expert not found")
				return
			}
			h.errLog.Log(r, "failed to resolve expert for event", err)
			jsonutil.InternalError(w, "Failed to update event")
			return
		}
		upd.ExpertID = &expertID
	}

	if err := h.events.Update(r.Context(), event.ID, upd); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Event not found")
			return
		}
		h.errLog.Log(r, "failed to update event", err)
		jsonutil.InternalError(w, "Failed to update event")
		return
	}

	current, _ := auth.CurrentAccount(r)
	h.recorder.Updated(r, current.AccountID(), activity.ResourceEvent, event.ID, "updated event")

	updated, err := h.events.GetByID(r.Context(), event.ID)
	if err != nil {
		h.errLog.Log(r, "failed to reload event", err)
		jsonutil.InternalError(w, "Failed to load event")
		return
	}
	jsonutil.OK(w, updated)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	event := h.loadOwnedEvent(w, r)
	if event == nil {
		return
	}

	var in struct {
		Status string `json:"status"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	status := normalize.Status(in.Status)
	if !models.IsValidEventStatus(status) {
		jsonutil.BadRequest(w, "Invalid event status")
		return
	}

	if err := h.events.UpdateStatus(r.Context(), event.ID, status); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Event not found")
			return
		}
		h.errLog.Log(r, "failed to update event status", err)
		jsonutil.InternalError(w, "Failed to update event")
		return
	}

	current, _ := auth.CurrentAccount(r)
	h.recorder.Updated(r, current.AccountID(), activity.ResourceEvent, event.ID,
		"changed event status to "+status)

	updated, err := h.events.GetByID(r.Context(), event.ID)
	if err != nil {
		h.errLog.Log(r, "failed to reload event", err)
		jsonutil.InternalError(w, "Failed to load event")
		return
	}
	jsonutil.OK(w, updated)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	event := h.loadOwnedEvent(w, r)
	if event == nil {
		return
	}

	if err := h.events.SoftDelete(r.Context(), event.ID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Event not found")
			return
		}
		h.errLog.Log(r, "failed to delete event", err)
		jsonutil.InternalError(w, "Failed to delete event")
		return
	}

	current, _ := auth.CurrentAccount(r)
	h.recorder.Deleted(r, current.AccountID(), activity.ResourceEvent, event.ID, "removed event")
	jsonutil.OKMessage(w, "Event deleted successfully")
}

// register claims one seat. The store update is conditional on remaining
// capacity, so two concurrent registrations for the last seat cannot
// both succeed.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid event ID")
		return
	}

	// Distinguish "no such event" from "full" up front; the conditional
	// update alone reports both the same way.
	if _, err := h.events.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Event not found")
			return
		}
		h.errLog.Log(r, "failed to load event for registration", err)
		jsonutil.InternalError(w, "Failed to register")
		return
	}

	if err := h.events.RegisterAttendee(r.Context(), id); err != nil {
		if errors.Is(err, eventstore.ErrEventFull) {
			jsonutil.Error(w, http.StatusConflict, "Event is at full capacity")
			return
		}
		h.errLog.Log(r, "failed to register attendee", err)
		jsonutil.InternalError(w, "Failed to register")
		return
	}

	current, _ := auth.CurrentAccount(r)
	h.recorder.Registered(r, current.AccountID(), id, "registered for event")

	event, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.Log(r, "failed to reload event", err)
		jsonutil.InternalError(w, "Failed to load event")
		return
	}
	jsonutil.OK(w, event)
}

func (h *Handler) upcoming(w http.ResponseWriter, r *http.Request) {
	limit := parseInt64(r.URL.Query().Get("limit"), 10)
	events, err := h.events.Upcoming(r.Context(), limit)
	if err != nil {
		h.errLog.Log(r, "failed to load upcoming events", err)
		jsonutil.InternalError(w, "Failed to load stats")
		return
	}
	jsonutil.OK(w, events)
}

// byCoordinator summarizes a coordinator's events. Self or admin only.
func (h *Handler) byCoordinator(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid coordinator ID")
		return
	}
	if !authz.AllowOwner(r, id) {
		jsonutil.Forbidden(w, "Access denied. Insufficient permissions.")
		return
	}

	stats, err := h.events.StatsByCoordinator(r.Context(), id)
	if err != nil {
		h.errLog.Log(r, "failed to load coordinator stats", err)
		jsonutil.InternalError(w, "Failed to load stats")
		return
	}
	jsonutil.OK(w, stats)
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
