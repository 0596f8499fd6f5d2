package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestAccount represents account data for testing HTTP handlers.
type TestAccount struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// AdminAccount returns a TestAccount with admin role.
func AdminAccount() TestAccount {
	return TestAccount{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Admin",
		Email: "admin@test.com",
		Role:  "admin",
	}
}

// CoordinatorAccount returns a TestAccount with coordinator role.
func CoordinatorAccount() TestAccount {
	return TestAccount{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Coordinator",
		Email: "coordinator@test.com",
		Role:  "coordinator",
	}
}

// WithAccount adds an account to the request context for testing
// authenticated handlers. This bypasses the verifier middleware and
// injects the account directly.
func WithAccount(r *http.Request, account TestAccount) *http.Request {
	return auth.WithTestAccount(r, &auth.Account{
		ID:    account.ID,
		Name:  account.Name,
		Email: account.Email,
		Role:  account.Role,
	})
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAuthenticatedRequest creates an HTTP request with an account in context.
func NewAuthenticatedRequest(method, target string, account TestAccount) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithAccount(req, account)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	body := r.Body.String()
	if !strings.Contains(body, expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
