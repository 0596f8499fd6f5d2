package expertsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	errorsfeature "github.com/dalemusser/engagehub/internal/app/features/errors"
	expertstore "github.com/dalemusser/engagehub/internal/app/store/experts"
	"github.com/dalemusser/engagehub/internal/domain/models"
	"github.com/dalemusser/engagehub/internal/testutil"
	"github.com/go-chi/chi/v5"
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

func seedExpert(t *testing.T, store *expertstore.Store, name, email string, expertise []string) models.Expert {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	expert, err := store.Create(ctx, models.Expert{
		Name:      name,
		Email:     email,
		Company:   "Acme",
		Expertise: expertise,
	})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", email, err)
	}
	return expert
}

func TestCreateExpert_SanitizesFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	body := `{
		"name": "Dana <b>Expert</b>",
		"email": "Dana@Example.com",
		"company": "Widgets<script>x()</script> Inc",
		"bio": "<p>Ships <strong>widgets</strong></p><script>evil()</script>",
		"expertise": ["  Cloud ", "<i>ML</i>", ""]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/experts", strings.NewReader(body))
	req = testutil.WithAccount(req, testutil.CoordinatorAccount())
	rec := httptest.NewRecorder()
	h.create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data models.Expert `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	got := resp.Data
	if got.Name != "Dana Expert" {
		t.Errorf("name = %q, want plain text", got.Name)
	}
	if got.Email != "dana@example.com" {
		t.Errorf("email = %q, want lowercased", got.Email)
	}
	if got.Company != "Widgets Inc" {
		t.Errorf("company = %q, want script stripped", got.Company)
	}
	if !strings.Contains(got.Bio, "<strong>widgets</strong>") {
		t.Errorf("bio = %q, want formatting kept", got.Bio)
	}
	if strings.Contains(got.Bio, "script") {
		t.Errorf("bio = %q, want script removed", got.Bio)
	}
	if len(got.Expertise) != 2 || got.Expertise[0] != "Cloud" || got.Expertise[1] != "ML" {
		t.Errorf("expertise = %v, want [Cloud ML]", got.Expertise)
	}
	if got.Availability != models.AvailabilityAvailable {
		t.Errorf("availability = %q, want default available", got.Availability)
	}
}

func TestCreateExpert_DuplicateEmailConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	seedExpert(t, h.experts, "First", "dup@example.com", nil)

	body := `{"name":"Second","email":"dup@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/experts", strings.NewReader(body))
	req = testutil.WithAccount(req, testutil.CoordinatorAccount())
	rec := httptest.NewRecorder()
	h.create(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateExpert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	expert := seedExpert(t, h.experts, "Before", "update@example.com", nil)

	body := `{"position":"CTO","availability":"busy"}`
	req := httptest.NewRequest(http.MethodPut, "/api/experts/"+expert.ID.Hex(), strings.NewReader(body))
	req = testutil.WithAccount(req, testutil.CoordinatorAccount())
	req = withURLParam(req, "id", expert.ID.Hex())
	rec := httptest.NewRecorder()
	h.update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	reloaded, err := h.experts.GetByID(ctx, expert.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if reloaded.Position != "CTO" {
		t.Errorf("position = %q, want CTO", reloaded.Position)
	}
	if reloaded.Availability != models.AvailabilityBusy {
		t.Errorf("availability = %q, want busy", reloaded.Availability)
	}
	// Untouched fields keep their values.
	if reloaded.Name != "Before" {
		t.Errorf("name = %q, want unchanged", reloaded.Name)
	}
}

func TestUpdateExpert_InvalidAvailability(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	expert := seedExpert(t, h.experts, "Expert", "avail@example.com", nil)

	body := `{"availability":"sometimes"}`
	req := httptest.NewRequest(http.MethodPut, "/api/experts/"+expert.ID.Hex(), strings.NewReader(body))
	req = testutil.WithAccount(req, testutil.CoordinatorAccount())
	req = withURLParam(req, "id", expert.ID.Hex())
	rec := httptest.NewRecorder()
	h.update(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteExpert_SoftDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	expert := seedExpert(t, h.experts, "Gone", "gone@example.com", nil)

	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/api/experts/"+expert.ID.Hex(), testutil.AdminAccount())
	req = withURLParam(req, "id", expert.ID.Hex())
	rec := httptest.NewRecorder()
	h.remove(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// The expert no longer resolves through the store.
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := h.experts.GetByID(ctx, expert.ID); err != mongo.ErrNoDocuments {
		t.Errorf("GetByID() after delete error = %v, want ErrNoDocuments", err)
	}

	// A second delete reports not found.
	rec2 := httptest.NewRecorder()
	req2 := testutil.NewAuthenticatedRequest(http.MethodDelete, "/api/experts/"+expert.ID.Hex(), testutil.AdminAccount())
	req2 = withURLParam(req2, "id", expert.ID.Hex())
	h.remove(rec2, req2)
	if rec2.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec2.Code)
	}
}

func TestListExperts_FilterByExpertise(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	seedExpert(t, h.experts, "Cloud Person", "cloud@example.com", []string{"Cloud"})
	seedExpert(t, h.experts, "ML Person", "ml@example.com", []string{"ML"})

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/api/experts?expertise=Cloud", testutil.CoordinatorAccount())
	rec := httptest.NewRecorder()
	h.list(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			Experts []models.Expert `json:"experts"`
			Total   int64           `json:"total"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Total != 1 || len(resp.Data.Experts) != 1 {
		t.Fatalf("total = %d, experts = %d, want 1 each", resp.Data.Total, len(resp.Data.Experts))
	}
	if resp.Data.Experts[0].Name != "Cloud Person" {
		t.Errorf("expert = %q, want Cloud Person", resp.Data.Experts[0].Name)
	}
}

func TestExportCSV(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(db)

	seedExpert(t, h.experts, "Exported", "export@example.com", []string{"Cloud", "ML"})

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/api/experts/export/csv", testutil.AdminAccount())
	rec := httptest.NewRecorder()
	h.exportCSV(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Name,Email,Phone") {
		t.Errorf("missing header row: %q", body)
	}
	if !strings.Contains(body, "Exported,export@example.com") {
		t.Errorf("missing expert row: %q", body)
	}
	if !strings.Contains(body, "Cloud; ML") {
		t.Errorf("missing joined expertise: %q", body)
	}
}
