// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	loginstore "github.com/dalemusser/eventhub/internal/app/store/logins"
	"github.com/dalemusser/eventhub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/normalize"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Handler handles Google OAuth sign-in.
type Handler struct {
	Users      *userstore.Store
	Logins     *loginstore.Store
	StateStore *oauthstate.Store
	SessionMgr *auth.SessionManager
	Audit      *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g. "https://events.example.org/auth/google/callback"

	// Endpoint and UserInfoURL default to Google's; tests point them at a
	// local server.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	errLog *uierrors.ErrorLogger,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:        userstore.New(db),
		Logins:       loginstore.New(db),
		StateStore:   oauthstate.New(db),
		SessionMgr:   sessionMgr,
		Audit:        audit,
		ErrLog:       errLog,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		Endpoint:     google.Endpoint,
		UserInfoURL:  googleUserInfoURL,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		uierrors.Write(w, http.StatusServiceUnavailable, "google_not_configured", "Google sign-in is not available.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	returnURL := query.Get(r, "return")
	state, err := h.StateStore.Issue(ctx, returnURL, oauthstate.DefaultTTL)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to save OAuth state", err, "")
		return
	}

	dest := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, dest, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error", zap.String("error", errParam))
		redirectWithStatus(w, r, "google_denied")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	returnURL, err := h.StateStore.Consume(ctx, query.Get(r, "state"))
	if errors.Is(err, oauthstate.ErrInvalidState) {
		h.Log.Warn("invalid or expired OAuth state")
		redirectWithStatus(w, r, "invalid_state")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to consume OAuth state", err, "")
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		redirectWithStatus(w, r, "invalid_code")
		return
	}
	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		redirectWithStatus(w, r, "token_exchange")
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		redirectWithStatus(w, r, "user_info")
		return
	}
	if !info.EmailVerified || info.ID == "" {
		h.Log.Info("Google account email not verified", zap.String("email", info.Email))
		redirectWithStatus(w, r, "email_unverified")
		return
	}

	u, err := h.resolveUser(ctx, r, info)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "Google sign-in: resolve user failed", err, "")
		return
	}
	if !u.Active {
		status := "account_deactivated"
		if u.Pending() {
			status = "account_pending"
		}
		h.Log.Info("Google sign-in refused for inactive account",
			zap.String("user_id", u.ID.Hex()), zap.String("status", status))
		if u.Pending() {
			h.Audit.LoginFailedUserPending(ctx, r, u.ID, models.AuthMethodGoogle)
		} else {
			h.Audit.LoginFailedUserDisabled(ctx, r, u.ID, models.AuthMethodGoogle)
		}
		redirectWithStatus(w, r, status)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  string(u.Role),
	}); err != nil {
		h.ErrLog.LogServerError(w, r, "Google sign-in: save session failed", err, "")
		return
	}
	h.Log.Info("user signed in via Google", zap.String("user_id", u.ID.Hex()))
	h.Audit.LoginSuccess(ctx, r, u.ID, models.AuthMethodGoogle, u.Email)
	if err := h.Logins.Record(ctx, r, u.ID, models.AuthMethodGoogle); err != nil {
		h.Log.Warn("record login failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| User lookup                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// googleUserInfo is the subset of Google's userinfo response we use.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

// resolveUser finds the account for a Google identity:
//  1. an account already linked to the Google subject
//  2. an account with the same email, which gets linked
//  3. otherwise a new account, inactive until an admin approves it
func (h *Handler) resolveUser(ctx context.Context, r *http.Request, info *googleUserInfo) (models.User, error) {
	u, err := h.Users.GetByGoogleID(ctx, info.ID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, err
	}

	u, err = h.Users.GetByEmail(ctx, info.Email)
	if err == nil {
		if err := h.Users.LinkGoogle(ctx, u.ID, info.ID); err != nil {
			return models.User{}, err
		}
		h.Log.Info("linked Google account", zap.String("user_id", u.ID.Hex()))
		u.AuthMethod = models.AuthMethodGoogle
		u.AuthReturnID = info.ID
		return u, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, err
	}

	u, err = h.Users.Create(ctx, models.User{
		Email:        normalize.Email(info.Email),
		FullName:     info.Name,
		AuthMethod:   models.AuthMethodGoogle,
		AuthReturnID: info.ID,
		Role:         models.RoleUser,
		Active:       false,
	})
	if err != nil {
		return models.User{}, err
	}
	h.Log.Info("account registered via Google, awaiting approval", zap.String("user_id", u.ID.Hex()))
	h.Audit.UserRegistered(ctx, r, u.ID, models.AuthMethodGoogle)
	return u, nil
}

// redirectWithStatus sends the browser to the landing page with a status
// code the front end can display.
func redirectWithStatus(w http.ResponseWriter, r *http.Request, status string) {
	http.Redirect(w, r, "/?auth_status="+url.QueryEscape(status), http.StatusSeeOther)
}
