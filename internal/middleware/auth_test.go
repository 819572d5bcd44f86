package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"fintrack/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSessionValidator struct {
	validFn func(userID uint, tokenHash string) bool
}

func (s *stubSessionValidator) IsSessionValid(userID uint, tokenHash string) bool {
	if s.validFn != nil {
		return s.validFn(userID, tokenHash)
	}
	return true
}

func setupAuthRouter(sessions SessionValidator, roles ...models.Role) *gin.Engine {
	r := gin.New()
	group := r.Group("", AuthMiddleware(sessions))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("/test", func(c *gin.Context) {
		userID := c.GetUint(ContextUserID)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "user_id": userID})
	})
	return r
}

func doAuthRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func issueToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := GenerateToken(user)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	user := &models.User{
		Base:  models.Base{ID: 42},
		Email: "auth@example.com",
		Role:  models.RoleUser,
	}

	t.Run("valid token reaches the handler", func(t *testing.T) {
		token := issueToken(t, user)
		router := setupAuthRouter(&stubSessionValidator{})

		rec := doAuthRequest(router, "Bearer "+token)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		body := parseBody(t, rec)
		if body["user_id"] != float64(42) {
			t.Errorf("user_id = %v, want 42", body["user_id"])
		}
	})

	t.Run("session check receives the token hash", func(t *testing.T) {
		token := issueToken(t, user)
		var gotUserID uint
		var gotHash string
		sessions := &stubSessionValidator{
			validFn: func(userID uint, tokenHash string) bool {
				gotUserID = userID
				gotHash = tokenHash
				return true
			},
		}
		router := setupAuthRouter(sessions)

		rec := doAuthRequest(router, "Bearer "+token)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if gotUserID != 42 {
			t.Errorf("user ID passed to session check = %d, want 42", gotUserID)
		}
		if gotHash != HashToken(token) {
			t.Errorf("hash passed to session check does not match HashToken")
		}
	})

	t.Run("revoked session is rejected", func(t *testing.T) {
		token := issueToken(t, user)
		sessions := &stubSessionValidator{
			validFn: func(_ uint, _ string) bool { return false },
		}
		router := setupAuthRouter(sessions)

		rec := doAuthRequest(router, "Bearer "+token)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	headerTests := []struct {
		name   string
		header string
	}{
		{name: "missing_header", header: ""},
		{name: "malformed_header", header: "not-a-bearer-token"},
		{name: "wrong_scheme", header: "Basic abc123"},
		{name: "garbage_token", header: "Bearer not.a.jwt"},
	}

	for _, tt := range headerTests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupAuthRouter(&stubSessionValidator{})
			rec := doAuthRequest(router, tt.header)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			body := parseBody(t, rec)
			errObj, ok := body["error"].(map[string]interface{})
			if !ok {
				t.Fatal("expected error object in response")
			}
			if code, _ := errObj["code"].(string); code != "UNAUTHORIZED" {
				t.Errorf("error code = %q, want UNAUTHORIZED", code)
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name       string
		userRole   models.Role
		allowed    []models.Role
		wantStatus int
	}{
		{
			name:       "admin_passes_admin_gate",
			userRole:   models.RoleAdmin,
			allowed:    []models.Role{models.RoleAdmin},
			wantStatus: http.StatusOK,
		},
		{
			name:       "manager_passes_shared_gate",
			userRole:   models.RoleManager,
			allowed:    []models.Role{models.RoleAdmin, models.RoleManager},
			wantStatus: http.StatusOK,
		},
		{
			name:       "user_blocked_from_admin_gate",
			userRole:   models.RoleUser,
			allowed:    []models.Role{models.RoleAdmin},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "user_blocked_from_shared_gate",
			userRole:   models.RoleUser,
			allowed:    []models.Role{models.RoleAdmin, models.RoleManager},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{
				Base:  models.Base{ID: 7},
				Email: "roles@example.com",
				Role:  tt.userRole,
			}
			token := issueToken(t, user)
			router := setupAuthRouter(&stubSessionValidator{}, tt.allowed...)

			rec := doAuthRequest(router, "Bearer "+token)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
