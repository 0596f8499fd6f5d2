// Package authapi implements Google sign-in and session endpoints.
//
// Endpoints (mounted at /api/auth):
//   - GET  /google           - start the Google OAuth flow
//   - GET  /google/callback  - OAuth callback: link or create the account, mint a token
//   - GET  /profile          - current account (requires bearer token)
//   - PUT  /profile          - update own profile
//   - POST /logout           - record sign-out
//   - POST /refresh          - mint a fresh token
//   - GET  /check            - validity probe for the SPA
package authapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	errorsfeature "github.com/dalemusser/engagehub/internal/app/features/errors"
	accountstore "github.com/dalemusser/engagehub/internal/app/store/accounts"
	"github.com/dalemusser/engagehub/internal/app/store/oauthstate"
	"github.com/dalemusser/engagehub/internal/app/system/activitylog"
	"github.com/dalemusser/engagehub/internal/app/system/token"
	"github.com/dalemusser/engagehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Handler provides Google sign-in and session handlers.
type Handler struct {
	accounts        *accountstore.Store
	tokens          *token.Manager
	recorder        *activitylog.Recorder
	errLog          *errorsfeature.ErrorLogger
	oauthStateStore *oauthstate.Store
	oauthConfig     *oauth2.Config
	frontendURL     string
	logger          *zap.Logger
}

// NewHandler creates a new auth Handler.
func NewHandler(
	db *mongo.Database,
	tokens *token.Manager,
	recorder *activitylog.Recorder,
	errLog *errorsfeature.ErrorLogger,
	oauthStateStore *oauthstate.Store,
	clientID string,
	clientSecret string,
	baseURL string,
	frontendURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		accounts:        accountstore.New(db),
		tokens:          tokens,
		recorder:        recorder,
		errLog:          errLog,
		oauthStateStore: oauthStateStore,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  baseURL + "/api/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// startAuth initiates the Google OAuth flow.
func (h *Handler) startAuth(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		h.errLog.Log(r, "failed to generate state", err)
		h.redirectError(w, r, "oauth_error")
		return
	}

	if err := h.oauthStateStore.Create(r.Context(), state); err != nil {
		h.errLog.Log(r, "failed to store state", err)
		h.redirectError(w, r, "oauth_error")
		return
	}

	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleCallback processes the Google OAuth callback: it resolves the
// Google identity to an account (linking or creating as needed), mints a
// bearer token, and hands the token to the SPA via redirect.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if !h.oauthStateStore.Verify(r.Context(), state) {
		h.logger.Warn("invalid oauth state")
		h.redirectError(w, r, "invalid_state")
		return
	}

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		h.logger.Warn("oauth error from google", zap.String("error", errMsg))
		h.redirectError(w, r, errMsg)
		return
	}

	code := r.URL.Query().Get("code")
	oauthToken, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		h.errLog.Log(r, "failed to exchange code", err)
		h.redirectError(w, r, "token_exchange_failed")
		return
	}

	info, err := h.getUserInfo(r.Context(), oauthToken)
	if err != nil {
		h.errLog.Log(r, "failed to get user info", err)
		h.redirectError(w, r, "userinfo_failed")
		return
	}
	if info.Email == "" {
		h.logger.Warn("google userinfo missing email", zap.String("google_id", info.ID))
		h.redirectError(w, r, "email_required")
		return
	}

	account, err := h.resolveAccount(r.Context(), info)
	if err != nil {
		h.errLog.Log(r, "failed to resolve account", err)
		h.redirectError(w, r, "database_error")
		return
	}

	if account.Status != "active" {
		h.logger.Info("sign-in rejected: account disabled",
			zap.String("account_id", account.ID.Hex()))
		h.redirectError(w, r, "account_disabled")
		return
	}

	bearer, err := h.tokens.Issue(account.ID.Hex())
	if err != nil {
		h.errLog.Log(r, "failed to issue token", err)
		h.redirectError(w, r, "token_error")
		return
	}

	// Best effort - don't fail the sign-in if bookkeeping fails.
	if err := h.accounts.TouchLastLogin(r.Context(), account.ID); err != nil {
		h.logger.Warn("failed to record last login", zap.Error(err))
	}
	h.recorder.Login(r, account.ID)

	http.Redirect(w, r, h.frontendURL+"/auth/callback?token="+url.QueryEscape(bearer), http.StatusSeeOther)
}

// resolveAccount maps a Google identity onto an account. Match order:
// linked google_id first, then the verified email claim (linking the
// Google identity to that account), and finally a brand-new account
// with the default role. The first match wins.
func (h *Handler) resolveAccount(ctx context.Context, info *GoogleUserInfo) (*models.Account, error) {
	account, err := h.accounts.GetByGoogleID(ctx, info.ID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	account, err = h.accounts.GetByEmail(ctx, info.Email)
	if err == nil {
		if err := h.accounts.LinkGoogle(ctx, account.ID, info.ID, info.Picture); err != nil {
			return nil, err
		}
		account.GoogleID = &info.ID
		if info.Picture != "" {
			account.AvatarURL = info.Picture
		}
		return account, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	created, err := h.accounts.Create(ctx, models.Account{
		Name:      info.Name,
		Email:     info.Email,
		GoogleID:  &info.ID,
		AvatarURL: info.Picture,
		Role:      models.DefaultRole(),
	})
	if err != nil {
		return nil, err
	}
	h.logger.Info("account created from google sign-in",
		zap.String("account_id", created.ID.Hex()),
		zap.String("role", string(created.Role)))
	return &created, nil
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(code), http.StatusSeeOther)
}

// GoogleUserInfo represents user info from Google.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// getUserInfo fetches user info from Google.
func (h *Handler) getUserInfo(ctx context.Context, tok *oauth2.Token) (*GoogleUserInfo, error) {
	client := h.oauthConfig.Client(ctx, tok)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}

	return &info, nil
}

// generateState generates a random state token.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
