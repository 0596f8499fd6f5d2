// Package feedbackapi serves post-event feedback:
//
//	GET    /api/feedback                       - list (filters, pagination)
//	POST   /api/feedback                       - submit (caller becomes attendee)
//	GET    /api/feedback/{id}                  - detail
//	PUT    /api/feedback/{id}                  - update (attendee or admin)
//	DELETE /api/feedback/{id}                  - soft delete (attendee or admin)
//	GET    /api/feedback/stats/overview        - global summary (admin)
//	GET    /api/feedback/stats/by-expert/{id}  - expert rating summary
//	GET    /api/feedback/stats/by-event/{id}   - event feedback summary
//
// Every mutation recalculates the referenced expert's running rating
// from the surviving feedback.
package feedbackapi

import (
	"errors"
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/engagehub/internal/app/features/errors"
	"github.com/dalemusser/engagehub/internal/app/store/activity"
	eventstore "github.com/dalemusser/engagehub/internal/app/store/events"
	expertstore "github.com/dalemusser/engagehub/internal/app/store/experts"
	feedbackstore "github.com/dalemusser/engagehub/internal/app/store/feedback"
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
	feedback *feedbackstore.Store
	events   *eventstore.Store
	experts  *expertstore.Store
	recorder *activitylog.Recorder
	errLog   *errorsfeature.ErrorLogger
}

func NewHandler(db *mongo.Database, recorder *activitylog.Recorder, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{
		feedback: feedbackstore.New(db),
		events:   eventstore.New(db),
		experts:  expertstore.New(db),
		recorder: recorder,
		errLog:   errLog,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := bson.M{}
	if event := normalize.QueryParam(q.Get("event")); event != "" {
		id, err := primitive.ObjectIDFromHex(event)
		if err != nil {
			jsonutil.BadRequest(w, "Invalid event ID")
			return
		}
		filter["event_id"] = id
	}
	if expert := normalize.QueryParam(q.Get("expert")); expert != "" {
		id, err := primitive.ObjectIDFromHex(expert)
		if err != nil {
			jsonutil.BadRequest(w, "Invalid expert ID")
			return
		}
		filter["expert_id"] = id
	}
	if rating := normalize.QueryParam(q.Get("rating")); rating != "" {
		n, err := strconv.Atoi(rating)
		if err != nil || !models.IsValidFeedbackRating(n) {
			jsonutil.BadRequest(w, "Invalid rating")
			return
		}
		filter["rating"] = n
	}

	limit := parseInt64(q.Get("limit"), 20)
	page := parseInt64(q.Get("page"), 1)

	total, err := h.feedback.Count(r.Context(), filter)
	if err != nil {
		h.errLog.Log(r, "failed to count feedback", err)
		jsonutil.InternalError(w, "Failed to list feedback")
		return
	}

	opts := storeutil.Paginate(limit, page).SetSort(bson.D{{Key: "created_at", Value: -1}})
	entries, err := h.feedback.Find(r.Context(), filter, opts)
	if err != nil {
		h.errLog.Log(r, "failed to list feedback", err)
		jsonutil.InternalError(w, "Failed to list feedback")
		return
	}

	jsonutil.OK(w, map[string]any{
		"feedback": entries,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid feedback ID")
		return
	}

	entry, err := h.feedback.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Feedback not found")
			return
		}
		h.errLog.Log(r, "failed to load feedback", err)
		jsonutil.InternalError(w, "Failed to load feedback")
		return
	}
	jsonutil.OK(w, entry)
}

// create submits feedback for an event. The attendee is always the
// caller; the expert comes from the event, so feedback can never be
// attached to the wrong expert.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		EventID        string               `json:"event_id"`
		Rating         int                  `json:"rating"`
		Comments       string               `json:"comments"`
		Aspects        models.AspectRatings `json:"aspect_ratings"`
		Suggestions    string               `json:"suggestions"`
		WouldRecommend bool                 `json:"would_recommend"`
		Anonymous      bool                 `json:"anonymous"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}

	if !models.IsValidFeedbackRating(in.Rating) {
		jsonutil.BadRequest(w, "Rating must be between 1 and 5")
		return
	}
	if !validAspects(in.Aspects) {
		jsonutil.BadRequest(w, "Aspect ratings must be between 1 and 5")
		return
	}

	eventID, err := primitive.ObjectIDFromHex(in.EventID)
	if err != nil {
		jsonutil.BadRequest(w, "Invalid event ID")
		return
	}
	event, err := h.events.GetByID(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.BadRequest(w, "Event not found")
			return
		}
		h.errLog.Log(r, "failed to resolve event for feedback", err)
		jsonutil.InternalError(w, "Failed to submit feedback")
		return
	}

	current, _ := auth.CurrentAccount(r)
	attendeeID := current.AccountID()

	entry := models.Feedback{
		EventID:        event.ID,
		ExpertID:       event.ExpertID,
		AttendeeID:     attendeeID,
		Rating:         in.Rating,
		Comments:       htmlsanitize.PlainText(in.Comments),
		Aspects:        in.Aspects,
		Suggestions:    htmlsanitize.PlainText(in.Suggestions),
		WouldRecommend: in.WouldRecommend,
		Anonymous:      in.Anonymous,
	}

	created, err := h.feedback.Create(r.Context(), entry)
	if err != nil {
		if errors.Is(err, feedbackstore.ErrDuplicateFeedback) {
			jsonutil.Error(w, http.StatusConflict, "Feedback for this event already submitted")
			return
		}
		h.errLog.Log(r, "failed to create feedback", err)
		jsonutil.InternalError(w, "Failed to submit feedback")
		return
	}

	h.refreshExpertRating(r, event.ExpertID)
	h.recorder.Created(r, attendeeID, activity.ResourceFeedback, created.ID,
		"submitted feedback for event "+event.Title)
	jsonutil.Created(w, created)
}

// loadOwnedFeedback resolves the entry and enforces attendee ownership.
// It writes the response on failure and returns nil.
func (h *Handler) loadOwnedFeedback(w http.ResponseWriter, r *http.Request) *models.Feedback {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid feedback ID")
		return nil
	}

	entry, err := h.feedback.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Feedback not found")
			return nil
		}
		h.errLog.Log(r, "failed to load feedback", err)
		jsonutil.InternalError(w, "Failed to load feedback")
		return nil
	}

	if !authz.AllowOwner(r, entry.AttendeeID) {
		jsonutil.Forbidden(w, "Access denied. Insufficient permissions.")
		return nil
	}
	return entry
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	entry := h.loadOwnedFeedback(w, r)
	if entry == nil {
		return
	}

	var in struct {
		Rating         *int                  `json:"rating"`
		Comments       *string               `json:"comments"`
		Aspects        *models.AspectRatings `json:"aspect_ratings"`
		Suggestions    *string               `json:"suggestions"`
		WouldRecommend *bool                 `json:"would_recommend"`
		Anonymous      *bool                 `json:"anonymous"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}

	if in.Rating != nil && !models.IsValidFeedbackRating(*in.Rating) {
		jsonutil.BadRequest(w, "Rating must be between 1 and 5")
		return
	}
	if in.Aspects != nil && !validAspects(*in.Aspects) {
		jsonutil.BadRequest(w, "Aspect ratings must be between 1 and 5")
		return
	}
	if in.Comments != nil {
		clean := htmlsanitize.PlainText(*in.Comments)
		in.Comments = &clean
	}
	if in.Suggestions != nil {
		clean := htmlsanitize.PlainText(*in.Suggestions)
		in.Suggestions = &clean
	}

	upd := feedbackstore.UpdateInput{
		Rating:         in.Rating,
		Comments:       in.Comments,
		Aspects:        in.Aspects,
		Suggestions:    in.Suggestions,
		WouldRecommend: in.WouldRecommend,
		Anonymous:      in.Anonymous,
	}
	if err := h.feedback.Update(r.Context(), entry.ID, upd); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Feedback not found")
			return
		}
		h.errLog.Log(r, "failed to update feedback", err)
		jsonutil.InternalError(w, "Failed to update feedback")
		return
	}

	h.refreshExpertRating(r, entry.ExpertID)

	current, _ := auth.CurrentAccount(r)
	h.recorder.Updated(r, current.AccountID(), activity.ResourceFeedback, entry.ID, "updated feedback")

	updated, err := h.feedback.GetByID(r.Context(), entry.ID)
	if err != nil {
		h.errLog.Log(r, "failed to reload feedback", err)
		jsonutil.InternalError(w, "Failed to load feedback")
		return
	}
	jsonutil.OK(w, updated)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	entry := h.loadOwnedFeedback(w, r)
	if entry == nil {
		return
	}

	if err := h.feedback.SoftDelete(r.Context(), entry.ID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Feedback not found")
			return
		}
		h.errLog.Log(r, "failed to delete feedback", err)
		jsonutil.InternalError(w, "Failed to delete feedback")
		return
	}

	h.refreshExpertRating(r, entry.ExpertID)

	current, _ := auth.CurrentAccount(r)
	h.recorder.Deleted(r, current.AccountID(), activity.ResourceFeedback, entry.ID, "removed feedback")
	jsonutil.OKMessage(w, "Feedback deleted successfully")
}

// refreshExpertRating recomputes and stores the expert's running rating.
// A failure here is logged but never fails the request that triggered it;
// the next feedback mutation repairs the aggregate.
func (h *Handler) refreshExpertRating(r *http.Request, expertID primitive.ObjectID) {
	rating, err := h.feedback.AggregateExpertRating(r.Context(), expertID)
	if err != nil {
		h.errLog.Log(r, "failed to aggregate expert rating", err)
		return
	}
	if err := h.experts.SetRating(r.Context(), expertID, rating); err != nil {
		h.errLog.Log(r, "failed to store expert rating", err)
	}
}

func (h *Handler) statsOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.feedback.StatsOverview(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to aggregate feedback overview", err)
		jsonutil.InternalError(w, "Failed to load stats")
		return
	}
	jsonutil.OK(w, overview)
}

func (h *Handler) statsByExpert(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid expert ID")
		return
	}

	rating, err := h.feedback.AggregateExpertRating(r.Context(), id)
	if err != nil {
		h.errLog.Log(r, "failed to aggregate expert rating", err)
		jsonutil.InternalError(w, "Failed to load stats")
		return
	}
	jsonutil.OK(w, rating)
}

func (h *Handler) statsByEvent(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid event ID")
		return
	}

	summary, err := h.feedback.StatsByEvent(r.Context(), id)
	if err != nil {
		h.errLog.Log(r, "failed to aggregate event feedback", err)
		jsonutil.InternalError(w, "Failed to load stats")
		return
	}
	jsonutil.OK(w, summary)
}

// validAspects accepts zero (unrated) or a 1-5 value per aspect.
func validAspects(a models.AspectRatings) bool {
	for _, n := range []int{a.Content, a.Delivery, a.Interaction, a.Relevance} {
		if n != 0 && !models.IsValidFeedbackRating(n) {
			return false
		}
	}
	return true
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
