// Package middleware provides the gin middleware shared by the API routes.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/config"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/pkg/logger"
)

// ContextKeyAccountID is the gin context key holding the authenticated account ID.
const ContextKeyAccountID = "account_id"

// AccountResolver maps a verified identity to an account, creating it on first sight.
type AccountResolver interface {
	EnsureAccount(ctx context.Context, externalID, referrerExternalID string) (*models.Account, bool, error)
}

// Claims are the bearer token claims issued by the identity service.
// Subject is the external account identity; Ref optionally names the referrer.
type Claims struct {
	jwt.RegisteredClaims
	Ref string `json:"ref,omitempty"`
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	accounts AccountResolver
	log      *logger.Logger
}

// NewAuthenticator creates an authenticator from the auth configuration.
func NewAuthenticator(cfg *config.AuthConfig, accounts AccountResolver, log *logger.Logger) *Authenticator {
	leeway := cfg.ClockSkew()
	if leeway <= 0 {
		leeway = 2 * time.Minute
	}
	return &Authenticator{
		secret:   []byte(strings.TrimSpace(cfg.JWTSecret)),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   leeway,
		accounts: accounts,
		log:      log,
	}
}

// Middleware rejects requests without a valid token and stores the account ID.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := a.Parse(token)
		if err != nil {
			a.log.Debug().Err(err).Str("request_id", RequestID(c)).Msg("Token validation failed")
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		account, created, err := a.accounts.EnsureAccount(c.Request.Context(), claims.Subject, claims.Ref)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindValidation {
				abort(c, http.StatusUnauthorized, "invalid token subject")
				return
			}
			a.log.Error().Err(err).Str("subject", claims.Subject).Msg("Failed to resolve account")
			abort(c, http.StatusInternalServerError, "failed to resolve account")
			return
		}
		if created {
			a.log.Debug().Uint("account_id", account.ID).Msg("Account created on first request")
		}

		c.Set(ContextKeyAccountID, account.ID)
		c.Next()
	}
}

// Parse verifies the token signature and its registered claims.
func (a *Authenticator) Parse(token string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.leeway),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// AccountID returns the authenticated account ID set by Middleware.
func AccountID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextKeyAccountID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func extractBearer(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
