package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func requestWithAccount(id primitive.ObjectID, role string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return auth.WithTestAccount(req, &auth.Account{ID: id.Hex(), Role: role})
}

func TestAccountCtx(t *testing.T) {
	id := primitive.NewObjectID()

	t.Run("authenticated", func(t *testing.T) {
		role, _, gotID, ok := AccountCtx(requestWithAccount(id, "Coordinator"))
		if !ok {
			t.Fatal("ok = false, want true")
		}
		if role != "coordinator" {
			t.Errorf("role = %q, want %q (lowercased)", role, "coordinator")
		}
		if gotID != id {
			t.Errorf("accountID = %v, want %v", gotID, id)
		}
	})

	t.Run("no account", func(t *testing.T) {
		role, _, gotID, ok := AccountCtx(httptest.NewRequest(http.MethodGet, "/", nil))
		if ok {
			t.Error("ok = true, want false")
		}
		if role != "visitor" {
			t.Errorf("role = %q, want %q", role, "visitor")
		}
		if !gotID.IsZero() {
			t.Errorf("accountID = %v, want zero", gotID)
		}
	})

	t.Run("malformed account ID fails closed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = auth.WithTestAccount(req, &auth.Account{ID: "not-an-objectid", Role: "admin"})
		_, _, _, ok := AccountCtx(req)
		if ok {
			t.Error("ok = true, want false for malformed ID")
		}
	})
}

func TestAllowOwner(t *testing.T) {
	owner := primitive.NewObjectID()
	other := primitive.NewObjectID()

	tests := []struct {
		name    string
		req     *http.Request
		ownerID primitive.ObjectID
		want    bool
	}{
		{"admin bypasses ownership", requestWithAccount(other, "admin"), owner, true},
		{"owner allowed", requestWithAccount(owner, "coordinator"), owner, true},
		{"non-owner denied", requestWithAccount(other, "coordinator"), owner, false},
		{"zero owner passes vacuously", requestWithAccount(other, "coordinator"), primitive.NilObjectID, true},
		{"unauthenticated denied", httptest.NewRequest(http.MethodGet, "/", nil), owner, false},
		{"unauthenticated denied even with zero owner", httptest.NewRequest(http.MethodGet, "/", nil), primitive.NilObjectID, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllowOwner(tt.req, tt.ownerID); got != tt.want {
				t.Errorf("AllowOwner() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasRole(t *testing.T) {
	id := primitive.NewObjectID()

	if !HasRole(requestWithAccount(id, "admin"), "admin", "coordinator") {
		t.Error("admin should match multi-role list")
	}
	if HasRole(requestWithAccount(id, "coordinator"), "admin") {
		t.Error("coordinator should not match admin-only list")
	}
	if HasRole(httptest.NewRequest(http.MethodGet, "/", nil), "admin") {
		t.Error("unauthenticated request should never match")
	}
}
