package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"familyhub/internal/config"
	"familyhub/internal/models"
)

// newFakeProvider serves a token endpoint and a user info endpoint
func newFakeProvider(t *testing.T, subject, email, name string) OAuthProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": subject, "email": email, "name": name})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return OAuthProvider{
		Name:  "fake",
		Label: "Fake",
		Config: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			Endpoint: oauth2.Endpoint{
				AuthURL:  srv.URL + "/auth",
				TokenURL: srv.URL + "/token",
			},
		},
		UserInfoURL: srv.URL + "/userinfo",
	}
}

func startOAuth(t *testing.T, api *testAPI, provider string) (string, []*http.Cookie) {
	t.Helper()
	rec := api.do(t, http.MethodGet, "/api/auth/"+provider+"/start", "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("start status = %d body %s", rec.Code, rec.Body.String())
	}
	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad redirect: %v", err)
	}
	if got := location.Query().Get("redirect_uri"); got != "http://familyhub.test/api/auth/"+provider+"/callback" {
		t.Errorf("redirect_uri = %q", got)
	}
	return location.Query().Get("state"), rec.Result().Cookies()
}

func callback(api *testAPI, provider, query string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/"+provider+"/callback?"+query, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec
}

func TestOAuthFlowCreatesUser(t *testing.T) {
	api := newTestAPI(t, map[string]OAuthProvider{
		"fake": newFakeProvider(t, "sub-1", "Kim@Example.com", "Kim Lee"),
	}, nil)

	state, cookies := startOAuth(t, api, "fake")
	if state == "" || len(cookies) != 2 {
		t.Fatalf("state %q cookies %d", state, len(cookies))
	}

	rec := callback(api, "fake", url.Values{"code": {"abc"}, "state": {state}}.Encode(), cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("callback status = %d body %s", rec.Code, rec.Body.String())
	}
	var session models.Session
	decodeData(t, rec, &session)
	if session.User == nil || session.User.Email != "kim@example.com" || session.User.Username != "Kim.Lee" {
		t.Fatalf("session user = %+v", session.User)
	}

	rec = api.do(t, http.MethodGet, "/api/family", session.Token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("token from oauth rejected: %d", rec.Code)
	}
}

func TestOAuthCallbackRejectsBadState(t *testing.T) {
	api := newTestAPI(t, map[string]OAuthProvider{
		"fake": newFakeProvider(t, "sub-1", "kim@example.com", "Kim"),
	}, nil)
	state, cookies := startOAuth(t, api, "fake")

	tests := []struct {
		name    string
		query   url.Values
		cookies []*http.Cookie
	}{
		{"missing code", url.Values{"state": {state}}, cookies},
		{"no cookie", url.Values{"code": {"abc"}, "state": {state}}, nil},
		{"tampered state", url.Values{"code": {"abc"}, "state": {strings.Replace(state, ".", ".0", 1)}}, cookies},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := callback(api, "fake", tt.query.Encode(), tt.cookies)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestOAuthUnknownProvider(t *testing.T) {
	api := newTestAPI(t, nil, nil)
	rec := api.do(t, http.MethodGet, "/api/auth/myspace/start", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestNewOAuthProviders(t *testing.T) {
	providers := NewOAuthProviders(&config.Config{
		GoogleClientID:     "gid",
		GoogleClientSecret: "gsecret",
		FacebookClientID:   "fid",
	})
	if _, ok := providers["google"]; !ok {
		t.Error("expected google provider")
	}
	if _, ok := providers["facebook"]; ok {
		t.Error("facebook without secret should be skipped")
	}
	if providers["google"].Config.Endpoint.TokenURL == "" {
		t.Error("google endpoint not set")
	}
}

func TestProvidersList(t *testing.T) {
	api := newTestAPI(t, map[string]OAuthProvider{
		"fake": newFakeProvider(t, "s", "a@example.com", "A"),
	}, nil)
	var views []providerView
	decodeData(t, api.do(t, http.MethodGet, "/api/auth/providers", "", nil), &views)
	if len(views) != 1 || views[0].URL != "/api/auth/fake/start" {
		t.Errorf("providers = %+v", views)
	}
}
