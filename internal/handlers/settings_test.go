package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func signupToken(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/auth/signup", "",
		`{"email":"`+email+`","password":"hunter22"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" {
		t.Fatal("signup returned an empty token")
	}
	return resp.Token
}

func TestSignupAndLogin(t *testing.T) {
	m := newTestMain(t, &mockLLM{})
	router := m.Router()

	signupToken(t, router, "a@example.com")

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "duplicate signup",
			path:       "/api/auth/signup",
			body:       `{"email":"a@example.com","password":"other"}`,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "signup missing fields",
			path:       "/api/auth/signup",
			body:       `{"email":"b@example.com"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "login ok",
			path:       "/api/auth/login",
			body:       `{"email":"a@example.com","password":"hunter22"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "login wrong password",
			path:       "/api/auth/login",
			body:       `{"email":"a@example.com","password":"wrong"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "login unknown user",
			path:       "/api/auth/login",
			body:       `{"email":"nobody@example.com","password":"x"}`,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, tt.path, "", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestSettingsRequireAuth(t *testing.T) {
	m := newTestMain(t, &mockLLM{})
	router := m.Router()

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "garbage token", token: "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodGet, "/api/settings", tt.token, "")
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	m := newTestMain(t, &mockLLM{})
	router := m.Router()
	token := signupToken(t, router, "c@example.com")

	// A fresh user gets an empty record.
	w := doJSON(t, router, http.MethodGet, "/api/settings", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", w.Code)
	}
	var settings struct {
		OpenRouterAPIKey string `json:"openRouterApiKey"`
		DefaultModel     string `json:"defaultModel"`
		SystemPrompt     string `json:"systemPrompt"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &settings); err != nil {
		t.Fatal(err)
	}
	if settings.OpenRouterAPIKey != "" || settings.DefaultModel != "" || settings.SystemPrompt != "" {
		t.Errorf("fresh settings = %+v, want empty", settings)
	}

	// A PUT with a subset of fields updates only those fields.
	w = doJSON(t, router, http.MethodPut, "/api/settings", token,
		`{"openRouterApiKey":"sk-or-123","defaultModel":"openai/gpt-4o-mini"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, want 200: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPut, "/api/settings", token,
		`{"systemPrompt":"be terse"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, want 200: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/settings", token, "")
	if err := json.Unmarshal(w.Body.Bytes(), &settings); err != nil {
		t.Fatal(err)
	}
	if settings.OpenRouterAPIKey != "sk-or-123" {
		t.Errorf("openRouterApiKey = %q, want sk-or-123", settings.OpenRouterAPIKey)
	}
	if settings.DefaultModel != "openai/gpt-4o-mini" {
		t.Errorf("defaultModel = %q, want openai/gpt-4o-mini", settings.DefaultModel)
	}
	if settings.SystemPrompt != "be terse" {
		t.Errorf("systemPrompt = %q, want be terse", settings.SystemPrompt)
	}
}
