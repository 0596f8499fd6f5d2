package activityapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/engagehub/internal/app/features/errors"
	"github.com/dalemusser/engagehub/internal/app/store/activity"
	"github.com/dalemusser/engagehub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(db *mongo.Database) *Handler {
	return NewHandler(db, errorsfeature.NewErrorLogger(zap.NewNop()))
}

func withURLParams(r *http.Request, pairs ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(pairs); i += 2 {
		rctx.URLParams.Add(pairs[i], pairs[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func insertRecord(t *testing.T, store *activity.Store, rec activity.Record) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
}

func TestList_FiltersByActionAndUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	userA := primitive.NewObjectID()
	userB := primitive.NewObjectID()
	insertRecord(t, h.activities, activity.Record{UserID: userA, Action: activity.ActionLogin, Resource: activity.ResourceUser})
	insertRecord(t, h.activities, activity.Record{UserID: userA, Action: activity.ActionCreate, Resource: activity.ResourceEvent})
	insertRecord(t, h.activities, activity.Record{UserID: userB, Action: activity.ActionLogin, Resource: activity.ResourceUser})

	req := testutil.NewAuthenticatedRequest(http.MethodGet,
		"/api/activity?action=login&user="+userA.Hex(), testutil.AdminAccount())
	rec := httptest.NewRecorder()
	h.list(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			Activities []activity.Record `json:"activities"`
			Total      int64             `json:"total"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Total != 1 || len(resp.Data.Activities) != 1 {
		t.Fatalf("total = %d, records = %d, want 1 each", resp.Data.Total, len(resp.Data.Activities))
	}
	got := resp.Data.Activities[0]
	if got.UserID != userA || got.Action != activity.ActionLogin {
		t.Errorf("record = %+v, want userA login", got)
	}
}

func TestList_InvalidActionRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/api/activity?action=explode", testutil.AdminAccount())
	rec := httptest.NewRecorder()
	h.list(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestByUser_SelfOrAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	subject := primitive.NewObjectID()
	insertRecord(t, h.activities, activity.Record{UserID: subject, Action: activity.ActionLogin, Resource: activity.ResourceUser})

	cases := []struct {
		name       string
		caller     testutil.TestAccount
		wantStatus int
	}{
		{"self", testutil.TestAccount{ID: subject.Hex(), Role: "coordinator"}, http.StatusOK},
		{"admin", testutil.AdminAccount(), http.StatusOK},
		{"other coordinator", testutil.CoordinatorAccount(), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewAuthenticatedRequest(http.MethodGet,
				"/api/activity/user/"+subject.Hex(), tc.caller)
			req = withURLParams(req, "userId", subject.Hex())
			rec := httptest.NewRecorder()
			h.byUser(rec, req)
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestByResource(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	eventID := primitive.NewObjectID()
	otherID := primitive.NewObjectID()
	insertRecord(t, h.activities, activity.Record{
		UserID: primitive.NewObjectID(), Action: activity.ActionUpdate,
		Resource: activity.ResourceEvent, ResourceID: &eventID,
	})
	insertRecord(t, h.activities, activity.Record{
		UserID: primitive.NewObjectID(), Action: activity.ActionUpdate,
		Resource: activity.ResourceEvent, ResourceID: &otherID,
	})

	req := testutil.NewAuthenticatedRequest(http.MethodGet,
		"/api/activity/resource/event/"+eventID.Hex(), testutil.AdminAccount())
	req = withURLParams(req, "resource", "event", "resourceId", eventID.Hex())
	rec := httptest.NewRecorder()
	h.byResource(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data []activity.Record `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("records = %d, want 1", len(resp.Data))
	}
	if resp.Data[0].ResourceID == nil || *resp.Data[0].ResourceID != eventID {
		t.Errorf("resource_id = %v, want %v", resp.Data[0].ResourceID, eventID)
	}
}

func TestCleanup_RemovesOldEntries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	insertRecord(t, h.activities, activity.Record{
		UserID: primitive.NewObjectID(), Action: activity.ActionLogin,
		Resource: activity.ResourceUser, CreatedAt: time.Now().Add(-100 * 24 * time.Hour),
	})
	insertRecord(t, h.activities, activity.Record{
		UserID: primitive.NewObjectID(), Action: activity.ActionLogin,
		Resource: activity.ResourceUser,
	})

	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/api/activity/cleanup?days=90", testutil.AdminAccount())
	rec := httptest.NewRecorder()
	h.cleanup(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			Deleted int64 `json:"deleted"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", resp.Data.Deleted)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	remaining, err := h.activities.CountByFilter(ctx, activity.QueryFilter{})
	if err != nil {
		t.Fatalf("CountByFilter() error = %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
}

func TestExportCSV(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	eventID := primitive.NewObjectID()
	insertRecord(t, h.activities, activity.Record{
		UserID: primitive.NewObjectID(), Action: activity.ActionRegister,
		Resource: activity.ResourceEvent, ResourceID: &eventID,
		Description: "registered for event",
	})

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/api/activity/export/csv", testutil.AdminAccount())
	rec := httptest.NewRecorder()
	h.exportCSV(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "register,event,"+eventID.Hex()) {
		t.Errorf("missing record row: %q", body)
	}
}

func TestStatsOverview(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	insertRecord(t, h.activities, activity.Record{UserID: primitive.NewObjectID(), Action: activity.ActionLogin, Resource: activity.ResourceUser})
	insertRecord(t, h.activities, activity.Record{UserID: primitive.NewObjectID(), Action: activity.ActionLogin, Resource: activity.ResourceUser})
	insertRecord(t, h.activities, activity.Record{UserID: primitive.NewObjectID(), Action: activity.ActionCreate, Resource: activity.ResourceEvent})

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/api/activity/stats/overview", testutil.AdminAccount())
	rec := httptest.NewRecorder()
	h.statsOverview(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data activity.OverviewStats `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Total != 3 || resp.Data.Last24h != 3 {
		t.Errorf("stats = %+v, want total 3, last24h 3", resp.Data)
	}
	if len(resp.Data.ByAction) == 0 || resp.Data.ByAction[0].Action != activity.ActionLogin {
		t.Errorf("by_action = %+v, want login first", resp.Data.ByAction)
	}
}
