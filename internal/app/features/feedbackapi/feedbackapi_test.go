package feedbackapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/engagehub/internal/app/features/errors"
	"github.com/dalemusser/engagehub/internal/domain/models"
	"github.com/dalemusser/engagehub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(db *mongo.Database) *Handler {
	return NewHandler(db, nil, errorsfeature.NewErrorLogger(zap.NewNop()))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// seedEventWithExpert creates an expert and a completed event to review.
func seedEventWithExpert(t *testing.T, h *Handler, email string) (models.Expert, models.Event) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	expert, err := h.experts.Create(ctx, models.Expert{Name: "Expert", Email: email})
	if err != nil {
		t.Fatalf("Create expert error = %v", err)
	}
	event, err := h.events.Create(ctx, models.Event{
		Title:         "Reviewed Event",
		Type:          models.EventTypeSeminar,
		ExpertID:      expert.ID,
		CoordinatorID: primitive.NewObjectID(),
		Date:          time.Now().AddDate(0, 0, -1),
		Capacity:      50,
	})
	if err != nil {
		t.Fatalf("Create event error = %v", err)
	}
	return expert, event
}

func submit(t *testing.T, h *Handler, eventID string, attendee testutil.TestAccount, rating int) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"event_id":%q,"rating":%d,"would_recommend":true}`, eventID, rating)
	req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(body))
	req = testutil.WithAccount(req, attendee)
	rec := httptest.NewRecorder()
	h.create(rec, req)
	return rec
}

func TestCreateFeedback_RecalculatesExpertRating(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	expert, event := seedEventWithExpert(t, h, "rated@example.com")

	if rec := submit(t, h, event.ID.Hex(), testutil.CoordinatorAccount(), 5); rec.Code != http.StatusCreated {
		t.Fatalf("first submit status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := submit(t, h, event.ID.Hex(), testutil.CoordinatorAccount(), 3); rec.Code != http.StatusCreated {
		t.Fatalf("second submit status = %d: %s", rec.Code, rec.Body.String())
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	reloaded, err := h.experts.GetByID(ctx, expert.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if reloaded.Rating.Count != 2 {
		t.Errorf("rating count = %d, want 2", reloaded.Rating.Count)
	}
	if reloaded.Rating.Average != 4 {
		t.Errorf("rating average = %v, want 4", reloaded.Rating.Average)
	}
}

func TestCreateFeedback_DuplicateRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	_, event := seedEventWithExpert(t, h, "dup@example.com")
	attendee := testutil.CoordinatorAccount()

	if rec := submit(t, h, event.ID.Hex(), attendee, 4); rec.Code != http.StatusCreated {
		t.Fatalf("first submit status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := submit(t, h, event.ID.Hex(), attendee, 2); rec.Code != http.StatusConflict {
		t.Errorf("duplicate submit status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateFeedback_ExpertComesFromEvent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	expert, event := seedEventWithExpert(t, h, "bind@example.com")

	rec := submit(t, h, event.ID.Hex(), testutil.CoordinatorAccount(), 4)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data models.Feedback `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.ExpertID != expert.ID {
		t.Errorf("expert_id = %v, want the event's expert %v", resp.Data.ExpertID, expert.ID)
	}
}

func TestCreateFeedback_BadRatingRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	_, event := seedEventWithExpert(t, h, "range@example.com")

	for _, rating := range []int{0, 6, -1} {
		if rec := submit(t, h, event.ID.Hex(), testutil.CoordinatorAccount(), rating); rec.Code != http.StatusBadRequest {
			t.Errorf("rating %d status = %d, want 400", rating, rec.Code)
		}
	}
}

func TestUpdateFeedback_OwnershipEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	_, event := seedEventWithExpert(t, h, "ownfb@example.com")
	attendee := testutil.CoordinatorAccount()

	rec := submit(t, h, event.ID.Hex(), attendee, 4)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Data models.Feedback `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	id := created.Data.ID.Hex()

	cases := []struct {
		name       string
		caller     testutil.TestAccount
		wantStatus int
	}{
		{"attendee can update", attendee, http.StatusOK},
		{"admin can update", testutil.AdminAccount(), http.StatusOK},
		{"other coordinator denied", testutil.CoordinatorAccount(), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/feedback/"+id,
				strings.NewReader(`{"comments":"Great session"}`))
			req = testutil.WithAccount(req, tc.caller)
			req = withURLParam(req, "id", id)
			rec := httptest.NewRecorder()
			h.update(rec, req)
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestDeleteFeedback_RecalculatesExpertRating(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	expert, event := seedEventWithExpert(t, h, "del@example.com")
	attendee := testutil.CoordinatorAccount()

	rec := submit(t, h, event.ID.Hex(), attendee, 5)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Data models.Feedback `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodDelete,
		"/api/feedback/"+created.Data.ID.Hex(), attendee)
	req = withURLParam(req, "id", created.Data.ID.Hex())
	rec2 := httptest.NewRecorder()
	h.remove(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rec2.Code, rec2.Body.String())
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	reloaded, err := h.experts.GetByID(ctx, expert.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if reloaded.Rating.Count != 0 || reloaded.Rating.Average != 0 {
		t.Errorf("rating = %+v, want zeroed after delete", reloaded.Rating)
	}
}

func TestStatsByEvent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	_, event := seedEventWithExpert(t, h, "evstats@example.com")

	body := fmt.Sprintf(`{
		"event_id": %q,
		"rating": 4,
		"would_recommend": true,
		"aspect_ratings": {"content": 5, "delivery": 3}
	}`, event.ID.Hex())
	req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(body))
	req = testutil.WithAccount(req, testutil.CoordinatorAccount())
	rec := httptest.NewRecorder()
	h.create(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}

	statsReq := testutil.NewAuthenticatedRequest(http.MethodGet,
		"/api/feedback/stats/by-event/"+event.ID.Hex(), testutil.AdminAccount())
	statsReq = withURLParam(statsReq, "id", event.ID.Hex())
	statsRec := httptest.NewRecorder()
	h.statsByEvent(statsRec, statsReq)

	if statsRec.Code != http.StatusOK {
		t.Fatalf("stats status = %d: %s", statsRec.Code, statsRec.Body.String())
	}
	var resp struct {
		Data struct {
			Total         int64   `json:"total"`
			AverageRating float64 `json:"average_rating"`
			AvgContent    float64 `json:"avg_content"`
			AvgDelivery   float64 `json:"avg_delivery"`
			AvgRelevance  float64 `json:"avg_relevance"`
		} `json:"data"`
	}
	if err := json.NewDecoder(statsRec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Total != 1 || resp.Data.AverageRating != 4 {
		t.Errorf("stats = %+v, want total 1, average 4", resp.Data)
	}
	if resp.Data.AvgContent != 5 || resp.Data.AvgDelivery != 3 {
		t.Errorf("aspect means = %+v, want content 5, delivery 3", resp.Data)
	}
	// Unrated aspects stay at zero instead of dragging the mean down.
	if resp.Data.AvgRelevance != 0 {
		t.Errorf("avg_relevance = %v, want 0 for unrated aspect", resp.Data.AvgRelevance)
	}
}
