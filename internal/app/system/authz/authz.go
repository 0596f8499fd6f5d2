// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountCtx returns the account's role (lowercased), name, Mongo ObjectID,
// and a found flag. If no account is present in context or the account ID
// is malformed, it returns "visitor", "", NilObjectID, false so callers can
// trust that ok=true means a valid, authenticated account.
func AccountCtx(r *http.Request) (role string, name string, accountID primitive.ObjectID, ok bool) {
	account, ok := auth.CurrentAccount(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	accountID, err := primitive.ObjectIDFromHex(account.ID)
	if err != nil {
		// Malformed account ID in context - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(account.Role), account.Name, accountID, true
}

// IsAdmin reports whether the current request's account is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := AccountCtx(r)
	return ok && role == "admin"
}

// HasRole reports whether the current account has one of the specified roles.
func HasRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := AccountCtx(r)
	if !ok {
		return false
	}
	for _, allowed := range roles {
		if strings.ToLower(allowed) == role {
			return true
		}
	}
	return false
}

// AllowOwner reports whether the current account may act on a resource
// owned by ownerID. Each handler resolves the owner for its own resource
// (event -> coordinator, feedback -> attendee, activity listing -> subject
// account) and passes it as a plain value.
//
// Admins pass unconditionally. A zero ownerID passes vacuously: resources
// without an owner are not ownership-protected. Otherwise the account must
// be the owner.
func AllowOwner(r *http.Request, ownerID primitive.ObjectID) bool {
	role, _, accountID, ok := AccountCtx(r)
	if !ok {
		return false
	}
	if role == "admin" {
		return true
	}
	if ownerID.IsZero() {
		return true
	}
	return accountID == ownerID
}
