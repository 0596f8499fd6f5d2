// Package auth verifies bearer credentials on incoming requests and loads
// the live account into the request context.
//
// Verification is two-step: the credential signature and expiry window are
// checked first, then the account is fetched fresh from the database. Role
// and status are never trusted from the credential itself, so role changes
// and deactivations take effect on the next request.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/engagehub/internal/app/system/jsonutil"
	"github.com/dalemusser/engagehub/internal/app/system/normalize"
	"github.com/dalemusser/engagehub/internal/app/system/token"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Failure messages returned to clients. These are stable strings the SPA
// matches on, so change them deliberately.
const (
	MsgMissingCredential   = "Access token required"
	MsgInvalidCredential   = "Invalid token"
	MsgExpiredCredential   = "Token expired"
	MsgUnauthorizedAccount = "Account not found or inactive"
	MsgVerifierFault       = "Authentication failed"
)

// Account represents the authenticated account in the request context.
// This data is fetched fresh from the database on each request so role
// changes, disabled accounts, and profile updates take effect immediately.
type Account struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// AccountID returns the account's ID as an ObjectID.
// If the ID is invalid, returns a zero ObjectID.
func (a *Account) AccountID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(a.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// AccountFetcher fetches fresh account data from the database.
//
// FetchAccount returns (nil, nil) when the account does not exist or is
// disabled, and (nil, err) only for infrastructure failures. The two cases
// map to different responses: missing/disabled is 401, a failure is 500.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, accountID string) (*Account, error)
}

type ctxKey string

const currentAccountKey ctxKey = "currentAccount"

// CurrentAccount returns the account & "found?" flag from the request context.
func CurrentAccount(r *http.Request) (*Account, bool) {
	a, ok := r.Context().Value(currentAccountKey).(*Account)
	return a, ok
}

func withAccount(r *http.Request, a *Account) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentAccountKey, a))
}

// WithTestAccount injects an Account into the request context for testing.
func WithTestAccount(r *http.Request, a *Account) *http.Request {
	return withAccount(r, a)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Verifier - injectable bearer credential verification                        |
*─────────────────────────────────────────────────────────────────────────────*/

// Verifier checks bearer credentials and loads accounts into context.
// Use NewVerifier to create an instance.
type Verifier struct {
	tokens  *token.Manager
	fetcher AccountFetcher
	logger  *zap.Logger
}

// NewVerifier creates a Verifier backed by the given credential manager
// and account fetcher.
func NewVerifier(tokens *token.Manager, fetcher AccountFetcher, logger *zap.Logger) *Verifier {
	return &Verifier{
		tokens:  tokens,
		fetcher: fetcher,
		logger:  logger,
	}
}

// RequireAccount returns middleware that verifies the bearer credential,
// loads the live account, and rejects the request if either fails.
//
// Responses:
//   - no Authorization header / wrong scheme: 401, MsgMissingCredential
//   - bad signature or malformed:             401, MsgInvalidCredential
//   - past expiry:                            401, MsgExpiredCredential
//   - account missing or disabled:            401, MsgUnauthorizedAccount
//   - account lookup infrastructure failure:  500, MsgVerifierFault
//
// Verification has no side effects; last-login is only touched at login.
func (v *Verifier) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			jsonutil.Unauthorized(w, MsgMissingCredential)
			return
		}

		accountID, err := v.tokens.Verify(raw)
		if err != nil {
			if err == token.ErrExpired {
				jsonutil.Unauthorized(w, MsgExpiredCredential)
				return
			}
			jsonutil.Unauthorized(w, MsgInvalidCredential)
			return
		}

		account, err := v.fetcher.FetchAccount(r.Context(), accountID)
		if err != nil {
			v.logger.Error("account lookup failed during verification",
				zap.String("account_id", accountID),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			jsonutil.InternalError(w, MsgVerifierFault)
			return
		}
		if account == nil {
			v.logger.Info("credential rejected: account not found or disabled",
				zap.String("account_id", accountID),
				zap.String("path", r.URL.Path))
			jsonutil.Unauthorized(w, MsgUnauthorizedAccount)
			return
		}

		next.ServeHTTP(w, withAccount(r, account))
	})
}

// RequireRole returns middleware that ensures the account in context has
// one of the allowed roles. Without an account it responds 401; with an
// account whose role is not in the set it responds 403.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[normalize.Role(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, ok := CurrentAccount(r)
			if !ok {
				jsonutil.Unauthorized(w, MsgMissingCredential)
				return
			}
			if _, has := set[normalize.Role(a.Role)]; !has {
				jsonutil.Forbidden(w, "Access denied. Insufficient permissions.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credential from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
