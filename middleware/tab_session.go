package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vedthemaster/lexsy-frontend/config"
	"github.com/vedthemaster/lexsy-frontend/model"
	"github.com/vedthemaster/lexsy-frontend/pkg/logger"
)

const (
	tabIDKey      = "tab_id"
	variantKey    = "variant"
	tabSessionKey = "tab_session"
)

// TabClaims is the per-tab state a browser keeps for its lifetime: which
// tab it is and which processing variant it picked on upload.
type TabClaims struct {
	TabID   string        `json:"tab_id"`
	Variant model.Variant `json:"variant"`
	jwt.RegisteredClaims
}

// IssueTabToken signs claims for tabID and variant.
func IssueTabToken(tabID string, variant model.Variant, cfg *config.SessionConfig) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(cfg.TTLHours) * time.Hour)

	claims := TabClaims{
		TabID:   tabID,
		Variant: variant,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseTabToken validates a tab token and returns its claims.
func ParseTabToken(tokenString string, cfg *config.SessionConfig) (*TabClaims, error) {
	claims := &TabClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.TabID == "" {
		return nil, errors.New("invalid tab token")
	}
	return claims, nil
}

type tabSession struct {
	cfg *config.SessionConfig
}

// TabSession attaches a tab identity to every request. A missing, expired
// or tampered cookie starts a fresh tab with defaultVariant.
func TabSession(cfg *config.SessionConfig, defaultVariant model.Variant) gin.HandlerFunc {
	sess := &tabSession{cfg: cfg}
	defaultVariant = defaultVariant.OrDefault()

	return func(c *gin.Context) {
		c.Set(tabSessionKey, sess)

		var claims *TabClaims
		if raw, err := c.Cookie(cfg.CookieName); err == nil && raw != "" {
			parsed, err := ParseTabToken(raw, cfg)
			if err != nil {
				logger.Debug(c.Request.Context(), "discarding tab cookie", "error", err)
			} else {
				claims = parsed
			}
		}

		if claims == nil {
			claims = &TabClaims{TabID: uuid.NewString(), Variant: defaultVariant}
			if err := sess.write(c, claims.TabID, claims.Variant); err != nil {
				logger.Error(c.Request.Context(), "failed to issue tab session", "error", err)
				abortWithError(c, http.StatusInternalServerError, "Internal server error")
				return
			}
		}

		c.Set(tabIDKey, claims.TabID)
		c.Set(variantKey, claims.Variant.OrDefault())

		ctx := context.WithValue(c.Request.Context(), logger.TabIDKey, claims.TabID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// write sets a session-scoped cookie; it has no Max-Age so it dies with the tab's browser session.
func (s *tabSession) write(c *gin.Context, tabID string, variant model.Variant) error {
	token, _, err := IssueTabToken(tabID, variant, s.cfg)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.CookieName, token, 0, "/", "", s.cfg.Secure, true)
	return nil
}

// GetTabID returns the tab id set by TabSession.
func GetTabID(c *gin.Context) string {
	return c.GetString(tabIDKey)
}

// GetVariant returns the tab's processing variant, defaulting to v1.
func GetVariant(c *gin.Context) model.Variant {
	if v, exists := c.Get(variantKey); exists {
		if variant, ok := v.(model.Variant); ok {
			return variant.OrDefault()
		}
	}
	return model.VariantV1
}

// SetVariant persists variant for the rest of the tab's lifetime.
func SetVariant(c *gin.Context, variant model.Variant) error {
	v, exists := c.Get(tabSessionKey)
	if !exists {
		return errors.New("tab session middleware not installed")
	}
	sess := v.(*tabSession)

	tabID := GetTabID(c)
	if tabID == "" {
		return errors.New("request has no tab id")
	}
	if err := sess.write(c, tabID, variant.OrDefault()); err != nil {
		return fmt.Errorf("failed to persist variant: %w", err)
	}
	c.Set(variantKey, variant.OrDefault())
	return nil
}
