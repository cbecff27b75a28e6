package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"familyhub/internal/config"
	"familyhub/internal/security"
)

const (
	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
	facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email"
)

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// NewOAuthProviders builds the providers that have credentials configured
func NewOAuthProviders(cfg *config.Config) map[string]OAuthProvider {
	providers := make(map[string]OAuthProvider)
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers["google"] = OAuthProvider{
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: googleUserInfoURL,
			AuthParams:  map[string]string{"prompt": "select_account"},
		}
	}
	if cfg.FacebookClientID != "" && cfg.FacebookClientSecret != "" {
		providers["facebook"] = OAuthProvider{
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: facebookUserInfoURL,
		}
	}
	return providers
}

type providerView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Providers lists the configured OAuth providers
func (h *AuthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	views := []providerView{}
	for key, provider := range h.oauthProviders {
		if !provider.configured() {
			continue
		}
		views = append(views, providerView{
			Name:  key,
			Label: provider.Label,
			URL:   fmt.Sprintf("/api/auth/%s/start", key),
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	respondJSON(w, http.StatusOK, views)
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := chi.URLParam(r, "provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, r, http.StatusBadRequest, CodeBadRequest, "OAuth provider not configured", nil)
		return
	}

	state, err := h.states.NewState()
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, CodeInternal, msgInternal, err)
		return
	}

	http.SetCookie(w, security.CreateStateCookie(r, OAuthStateCookieName, state, oauthCookieTTL))
	http.SetCookie(w, security.CreateStateCookie(r, OAuthProviderCookieName, providerKey, oauthCookieTTL))

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for key, value := range provider.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}

	http.Redirect(w, r, config.AuthCodeURL(state, options...), http.StatusFound)
}

// OAuthCallback exchanges the authorization code and returns a session
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := chi.URLParam(r, "provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, r, http.StatusBadRequest, CodeBadRequest, "OAuth provider not configured", nil)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, r, http.StatusBadRequest, CodeBadRequest, "Missing authorization code", nil)
		return
	}

	stateCookie, err := r.Cookie(OAuthStateCookieName)
	if err != nil || !h.states.Verify(r.URL.Query().Get("state"), stateCookie.Value) {
		respondWithError(w, r, http.StatusBadRequest, CodeBadRequest, "Invalid OAuth state", nil)
		return
	}
	if providerCookie, err := r.Cookie(OAuthProviderCookieName); err == nil && providerCookie.Value != providerKey {
		respondWithError(w, r, http.StatusBadRequest, CodeBadRequest, "OAuth provider mismatch", nil)
		return
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, OAuthStateCookieName))
	http.SetCookie(w, security.CreateDeleteCookie(r, OAuthProviderCookieName))

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, CodeBadRequest, "Failed to exchange OAuth code", err)
		return
	}

	info, err := fetchOAuthUserInfo(ctx, provider, token)
	if err != nil {
		respondWithError(w, r, http.StatusBadGateway, CodeUnavailable, err.Error(), err)
		return
	}

	session, err := h.authService.OAuthLogin(r.Context(), providerKey, info.Subject, info.Email, info.Name)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.registry.Open(r.Context(), session.User)
	respondJSON(w, http.StatusOK, session)
}

// fetchOAuthUserInfo reads the id, email and name of the token's owner.
// Google and Facebook both answer with the same field names.
func fetchOAuthUserInfo(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info", provider.Label)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info", provider.Label)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse %s user info", provider.Label)
	}
	if payload.ID == "" {
		return oauthUserInfo{}, errors.New("OAuth user info has no id")
	}

	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/api/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}
