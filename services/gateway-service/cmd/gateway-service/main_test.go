package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookwell/libs/auth"
)

func echoIdentity(t *testing.T, want auth.Claims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-Id") != want.Sub ||
			r.Header.Get("X-Business-Id") != want.BusinessID ||
			r.Header.Get("X-Role") != want.Role {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireRole(t *testing.T) {
	h := requireRole(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), "owner", "admin")

	for role, want := range map[string]int{
		"member": http.StatusForbidden,
		"":       http.StatusForbidden,
		"owner":  http.StatusOK,
		"admin":  http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "http://gw.test/", nil)
		if role != "" {
			req.Header.Set("X-Role", role)
		}
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		if rw.Code != want {
			t.Fatalf("role %q: expected %d, got %d", role, want, rw.Code)
		}
	}
}

func TestRequireAuthHS256(t *testing.T) {
	secret := "test-secret"
	claims := auth.Claims{
		Sub:        "user-1",
		BusinessID: "biz-1",
		Role:       "owner",
		Iat:        time.Now().Unix(),
		Exp:        time.Now().Add(time.Hour).Unix(),
	}
	token, err := auth.SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}

	h := requireAuth(echoIdentity(t, claims), secret, nil)

	req := httptest.NewRequest(http.MethodGet, "http://gw.test/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	for name, header := range map[string]string{
		"garbage token": "Bearer badtoken",
		"no bearer":     token,
		"missing":       "",
	} {
		req := httptest.NewRequest(http.MethodGet, "http://gw.test/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		if rw.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rw.Code)
		}
	}
}

func TestStripIdentityHeaders(t *testing.T) {
	h := stripIdentityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, k := range []string{"X-User-Id", "X-Business-Id", "X-Role"} {
			if r.Header.Get(k) != "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://gw.test/api/v1/public/slots", nil)
	req.Header.Set("X-User-Id", "spoofed")
	req.Header.Set("X-Business-Id", "spoofed")
	req.Header.Set("X-Role", "admin")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected identity headers stripped, got %d", rw.Code)
	}
}
