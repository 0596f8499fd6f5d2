// internal/app/features/authapi/profile.go
package authapi

import (
	"errors"
	"net/http"

	accountstore "github.com/dalemusser/engagehub/internal/app/store/accounts"
	"github.com/dalemusser/engagehub/internal/app/store/activity"
	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/dalemusser/engagehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/engagehub/internal/app/system/jsonutil"
	"go.mongodb.org/mongo-driver/mongo"
)

// getProfile returns the full record of the authenticated account.
func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.CurrentAccount(r)

	account, err := h.accounts.GetByID(r.Context(), current.AccountID())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Account not found")
			return
		}
		h.errLog.Log(r, "failed to load profile", err)
		jsonutil.InternalError(w, "Failed to load profile")
		return
	}
	jsonutil.OK(w, account)
}

// updateProfile updates the authenticated account's own profile fields.
// Role and status are never updatable here.
func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.CurrentAccount(r)

	var in struct {
		Name       *string `json:"name"`
		Phone      *string `json:"phone"`
		Department *string `json:"department"`
		AvatarURL  *string `json:"avatar_url"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}

	if in.Name != nil {
		clean := htmlsanitize.PlainText(*in.Name)
		if clean == "" {
			jsonutil.BadRequest(w, "Name cannot be empty")
			return
		}
		in.Name = &clean
	}

	accountID := current.AccountID()
	upd := accountstore.ProfileUpdate{
		Name:       in.Name,
		Phone:      in.Phone,
		Department: in.Department,
		AvatarURL:  in.AvatarURL,
	}
	if err := h.accounts.UpdateProfile(r.Context(), accountID, upd); err != nil {
		h.errLog.Log(r, "failed to update profile", err)
		jsonutil.InternalError(w, "Failed to update profile")
		return
	}

	h.recorder.Updated(r, accountID, activity.ResourceUser, accountID, "updated own profile")

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		h.errLog.Log(r, "failed to reload profile", err)
		jsonutil.InternalError(w, "Failed to load profile")
		return
	}
	jsonutil.OK(w, account)
}

// logout records the sign-out in the activity trail. Bearer tokens are
// stateless, so the client discards the token; nothing is revoked
// server-side.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.CurrentAccount(r)
	h.recorder.Logout(r, current.AccountID())
	jsonutil.OKMessage(w, "Logged out successfully")
}

// refresh mints a fresh token for the authenticated account.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.CurrentAccount(r)

	bearer, err := h.tokens.Issue(current.ID)
	if err != nil {
		h.errLog.Log(r, "failed to refresh token", err)
		jsonutil.InternalError(w, "Failed to refresh token")
		return
	}
	jsonutil.OK(w, map[string]any{
		"token":      bearer,
		"expires_in": int64(h.tokens.TTL().Seconds()),
	})
}

// check confirms the bearer token is still good and returns the account
// summary the verifier loaded.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.CurrentAccount(r)
	jsonutil.OK(w, map[string]any{
		"id":    current.ID,
		"name":  current.Name,
		"email": current.Email,
		"role":  current.Role,
	})
}
