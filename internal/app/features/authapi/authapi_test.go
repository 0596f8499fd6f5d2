package authapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/engagehub/internal/app/features/errors"
	"github.com/dalemusser/engagehub/internal/app/store/oauthstate"
	"github.com/dalemusser/engagehub/internal/app/system/token"
	"github.com/dalemusser/engagehub/internal/domain/models"
	"github.com/dalemusser/engagehub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, db *mongo.Database) *Handler {
	t.Helper()
	return NewHandler(
		db,
		token.New("test-secret-0123456789abcdef", time.Hour),
		nil, // activity recording is optional in tests
		errorsfeature.NewErrorLogger(zap.NewNop()),
		oauthstate.New(db),
		"client-id",
		"client-secret",
		"http://localhost:8080",
		"http://localhost:3000",
		zap.NewNop(),
	)
}

func TestResolveAccount_MatchesLinkedGoogleID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	googleID := "google-123"
	existing, err := h.accounts.Create(ctx, models.Account{
		Name:     "Linked Account",
		Email:    "linked@example.com",
		GoogleID: &googleID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Same google_id but a different email must still match the linked
	// account: the identity link wins over the email claim.
	got, err := h.resolveAccount(ctx, &GoogleUserInfo{
		ID:    googleID,
		Email: "changed@example.com",
		Name:  "Changed Name",
	})
	if err != nil {
		t.Fatalf("resolveAccount() error = %v", err)
	}
	if got.ID != existing.ID {
		t.Errorf("resolved account %v, want %v", got.ID, existing.ID)
	}
}

func TestResolveAccount_LinksByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	existing, err := h.accounts.Create(ctx, models.Account{
		Name:  "Unlinked Account",
		Email: "Person@Example.com",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := h.resolveAccount(ctx, &GoogleUserInfo{
		ID:      "google-456",
		Email:   "person@example.com",
		Name:    "Person",
		Picture: "https://example.com/avatar.png",
	})
	if err != nil {
		t.Fatalf("resolveAccount() error = %v", err)
	}
	if got.ID != existing.ID {
		t.Fatalf("resolved account %v, want %v", got.ID, existing.ID)
	}

	// The Google identity must now be persisted on the account.
	reloaded, err := h.accounts.GetByGoogleID(ctx, "google-456")
	if err != nil {
		t.Fatalf("GetByGoogleID() after linking error = %v", err)
	}
	if reloaded.ID != existing.ID {
		t.Errorf("linked account %v, want %v", reloaded.ID, existing.ID)
	}
	if reloaded.AvatarURL != "https://example.com/avatar.png" {
		t.Errorf("avatar_url = %q, want linked picture", reloaded.AvatarURL)
	}
}

func TestResolveAccount_CreatesWithDefaultRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := h.resolveAccount(ctx, &GoogleUserInfo{
		ID:    "google-789",
		Email: "new@example.com",
		Name:  "New Person",
	})
	if err != nil {
		t.Fatalf("resolveAccount() error = %v", err)
	}
	if got.Role != models.DefaultRole() {
		t.Errorf("role = %q, want %q", got.Role, models.DefaultRole())
	}
	if got.Status != "active" {
		t.Errorf("status = %q, want active", got.Status)
	}
	if got.GoogleID == nil || *got.GoogleID != "google-789" {
		t.Errorf("google_id = %v, want google-789", got.GoogleID)
	}
}

func TestResolveAccount_GoogleIDBeatsEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	linkedID := "google-abc"
	byGoogle, err := h.accounts.Create(ctx, models.Account{
		Name:     "By Google",
		Email:    "bygoogle@example.com",
		GoogleID: &linkedID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := h.accounts.Create(ctx, models.Account{
		Name:  "By Email",
		Email: "byemail@example.com",
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Both branches could match; the google_id match must win.
	got, err := h.resolveAccount(ctx, &GoogleUserInfo{
		ID:    linkedID,
		Email: "byemail@example.com",
	})
	if err != nil {
		t.Fatalf("resolveAccount() error = %v", err)
	}
	if got.ID != byGoogle.ID {
		t.Errorf("resolved account %v, want the google_id match %v", got.ID, byGoogle.ID)
	}
}

func TestUpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	account, err := h.accounts.Create(ctx, models.Account{
		Name:  "Before",
		Email: "profile@example.com",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	body := `{"name":"After <script>alert(1)</script>","phone":"555-0100"}`
	req := httptest.NewRequest(http.MethodPut, "/api/auth/profile", strings.NewReader(body))
	req = testutil.WithAccount(req, testutil.TestAccount{
		ID: account.ID.Hex(), Name: account.Name, Email: account.Email, Role: "coordinator",
	})
	rec := httptest.NewRecorder()

	h.updateProfile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	reloaded, err := h.accounts.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if reloaded.Name != "After" {
		t.Errorf("name = %q, want sanitized %q", reloaded.Name, "After")
	}
	if reloaded.Phone != "555-0100" {
		t.Errorf("phone = %q, want %q", reloaded.Phone, "555-0100")
	}
}

func TestUpdateProfile_EmptyNameRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	account, err := h.accounts.Create(ctx, models.Account{
		Name:  "Keep",
		Email: "keep@example.com",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/auth/profile", strings.NewReader(`{"name":"   "}`))
	req = testutil.WithAccount(req, testutil.TestAccount{ID: account.ID.Hex(), Role: "coordinator"})
	rec := httptest.NewRecorder()

	h.updateProfile(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)

	accountID := "64f000000000000000000001"
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req = testutil.WithAccount(req, testutil.TestAccount{ID: accountID, Role: "coordinator"})
	rec := httptest.NewRecorder()

	h.refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Token     string `json:"token"`
			ExpiresIn int64  `json:"expires_in"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Token == "" {
		t.Error("refresh returned empty token")
	}
	if resp.Data.ExpiresIn != int64(time.Hour.Seconds()) {
		t.Errorf("expires_in = %d, want %d", resp.Data.ExpiresIn, int64(time.Hour.Seconds()))
	}

	// The new token must verify back to the same account.
	got, err := h.tokens.Verify(resp.Data.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != accountID {
		t.Errorf("token subject = %q, want %q", got, accountID)
	}
}

func TestStartAuth_RedirectsToGoogle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google", nil)
	rec := httptest.NewRecorder()

	h.startAuth(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTemporaryRedirect)
	}
	loc := rec.Header().Get("Location")
	if !strings.Contains(loc, "accounts.google.com") {
		t.Errorf("redirect location = %q, want Google auth URL", loc)
	}
	if !strings.Contains(loc, "state=") {
		t.Errorf("redirect location missing state parameter: %q", loc)
	}
}

func TestHandleCallback_InvalidStateRedirects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=forged", nil)
	rec := httptest.NewRecorder()

	h.handleCallback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	loc := rec.Header().Get("Location")
	if !strings.Contains(loc, "error=invalid_state") {
		t.Errorf("redirect location = %q, want invalid_state error", loc)
	}
}
