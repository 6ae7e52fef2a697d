package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vedthemaster/lexsy-frontend/config"
	"github.com/vedthemaster/lexsy-frontend/model"
)

func testSessionConfig() *config.SessionConfig {
	return &config.SessionConfig{
		Secret:     "test-secret-key",
		CookieName: "lexsy_tab",
		TTLHours:   12,
	}
}

func tabCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestIssueAndParseTabToken(t *testing.T) {
	cfg := testSessionConfig()

	token, expiresAt, err := IssueTabToken("tab-1", model.VariantV2, cfg)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	expectedExpiry := time.Now().Add(12 * time.Hour)
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("Expiry time %v is not within expected range of %v", expiresAt, expectedExpiry)
	}

	claims, err := ParseTabToken(token, cfg)
	if err != nil {
		t.Fatalf("Failed to parse token: %v", err)
	}
	if claims.TabID != "tab-1" || claims.Variant != model.VariantV2 {
		t.Errorf("Unexpected claims %+v", claims)
	}

	other := testSessionConfig()
	other.Secret = "another-secret"
	if _, err := ParseTabToken(token, other); err == nil {
		t.Error("Expected token signed with another secret to be rejected")
	}
}

func TestParseTabTokenExpired(t *testing.T) {
	cfg := testSessionConfig()
	claims := TabClaims{
		TabID:   "tab-1",
		Variant: model.VariantV1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))

	if _, err := ParseTabToken(token, cfg); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}

func TestTabSessionMiddleware(t *testing.T) {
	cfg := testSessionConfig()
	valid, _, _ := IssueTabToken("tab-known", model.VariantV2, cfg)

	tests := []struct {
		name        string
		cookie      string
		wantTab     string
		wantVariant model.Variant
		wantCookie  bool
	}{
		{"no cookie", "", "", model.VariantV1, true},
		{"valid cookie", valid, "tab-known", model.VariantV2, false},
		{"tampered cookie", valid + "x", "", model.VariantV1, true},
		{"garbage cookie", "not-a-jwt", "", model.VariantV1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(TabSession(cfg, model.VariantV1))

			var gotTab string
			var gotVariant model.Variant
			router.GET("/test", func(c *gin.Context) {
				gotTab = GetTabID(c)
				gotVariant = GetVariant(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if gotTab == "" {
				t.Fatal("Expected a tab id")
			}
			if tt.wantTab != "" && gotTab != tt.wantTab {
				t.Errorf("Expected tab %s, got %s", tt.wantTab, gotTab)
			}
			if gotVariant != tt.wantVariant {
				t.Errorf("Expected variant %s, got %s", tt.wantVariant, gotVariant)
			}

			cookie := tabCookie(w, cfg.CookieName)
			if (cookie != nil) != tt.wantCookie {
				t.Fatalf("Expected cookie issued=%v, got %v", tt.wantCookie, cookie)
			}
			if cookie != nil {
				if !cookie.HttpOnly {
					t.Error("Expected HttpOnly cookie")
				}
				if cookie.MaxAge != 0 {
					t.Errorf("Expected a session cookie, got MaxAge %d", cookie.MaxAge)
				}
			}
		})
	}
}

func TestSetVariant(t *testing.T) {
	cfg := testSessionConfig()
	router := gin.New()
	router.Use(TabSession(cfg, model.VariantV1))

	var tabID string
	router.POST("/upload", func(c *gin.Context) {
		tabID = GetTabID(c)
		if err := SetVariant(c, model.VariantV2); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, string(GetVariant(c)))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/upload", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "v2") {
		t.Fatalf("Unexpected response %d %s", w.Code, w.Body.String())
	}

	// The last cookie written wins in the browser.
	cookies := w.Result().Cookies()
	last := cookies[len(cookies)-1]
	claims, err := ParseTabToken(last.Value, cfg)
	if err != nil {
		t.Fatalf("Failed to parse cookie: %v", err)
	}
	if claims.TabID != tabID || claims.Variant != model.VariantV2 {
		t.Errorf("Expected persisted variant for the same tab, got %+v", claims)
	}
}

func TestSetVariantWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if err := SetVariant(c, model.VariantV2); err == nil {
		t.Error("Expected error without tab session")
	}
}

func TestGetVariantDefault(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if GetVariant(c) != model.VariantV1 {
		t.Errorf("Expected v1, got %s", GetVariant(c))
	}
	c.Set(variantKey, model.Variant("v9"))
	if GetVariant(c) != model.VariantV1 {
		t.Errorf("Expected unknown variant to fall back to v1, got %s", GetVariant(c))
	}
}
