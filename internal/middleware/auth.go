package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"authguard/internal/authz"
	"authguard/internal/services"
)

const bearerPrefix = "Bearer "

// GuardState is where a request ended up inside the guard.
type GuardState int

const (
	NoToken GuardState = iota
	TokenPresentInvalidFormat
	TokenInvalidSignatureOrExpired
	TokenValidWrongRole
	TokenValidRoleAccepted
)

func (s GuardState) String() string {
	switch s {
	case NoToken:
		return "no_token"
	case TokenPresentInvalidFormat:
		return "invalid_format"
	case TokenInvalidSignatureOrExpired:
		return "invalid_signature_or_expired"
	case TokenValidWrongRole:
		return "wrong_role"
	case TokenValidRoleAccepted:
		return "accepted"
	}
	return "unknown"
}

type claimsKey struct{}

// ginClaimsKey is the gin context key holding *services.Claims.
const ginClaimsKey = "auth.claims"

// ClaimsFromContext returns the claims the guard attached to the request.
func ClaimsFromContext(ctx context.Context) (*services.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*services.Claims)
	return c, ok && c != nil
}

// ClaimsFromGin reads the claims from a gin context.
func ClaimsFromGin(c *gin.Context) (*services.Claims, bool) {
	if v, ok := c.Get(ginClaimsKey); ok {
		if claims, ok := v.(*services.Claims); ok && claims != nil {
			return claims, true
		}
	}
	return ClaimsFromContext(c.Request.Context())
}

type tokenParser interface {
	Parse(tokenString string) (*services.Claims, error)
}

// Guard checks bearer tokens and role requirements for protected routes.
type Guard struct {
	tokens            tokenParser
	logger            *slog.Logger
	distinctForbidden bool
}

type GuardOption func(*Guard)

// WithDistinctForbidden answers wrong-role requests with 403 instead of 401.
func WithDistinctForbidden(enabled bool) GuardOption {
	return func(g *Guard) { g.distinctForbidden = enabled }
}

func NewGuard(tokens tokenParser, logger *slog.Logger, opts ...GuardOption) *Guard {
	g := &Guard{tokens: tokens, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// bearerToken extracts the token from an exact "Bearer <token>" header.
func bearerToken(header string) (string, GuardState) {
	if header == "" {
		return "", NoToken
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", TokenPresentInvalidFormat
	}
	token := header[len(bearerPrefix):]
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", TokenPresentInvalidFormat
	}
	return token, TokenInvalidSignatureOrExpired
}

// Evaluate runs the guard decision for one header value. It never panics.
func (g *Guard) Evaluate(header string, req authz.Requirement) (claims *services.Claims, state GuardState) {
	token, state := bearerToken(header)
	if state != TokenInvalidSignatureOrExpired {
		return nil, state
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("guard: token verification panicked", "panic", r)
			claims, state = nil, TokenInvalidSignatureOrExpired
		}
	}()

	claims, err := g.tokens.Parse(token)
	if err != nil || claims == nil {
		return nil, TokenInvalidSignatureOrExpired
	}
	if !req.Allows(claims.Role) {
		return claims, TokenValidWrongRole
	}
	return claims, TokenValidRoleAccepted
}

// RequireRole builds the middleware for one route requirement.
func (g *Guard) RequireRole(req authz.Requirement) gin.HandlerFunc {
	if !req.Valid() {
		panic("middleware: invalid role requirement " + string(req))
	}
	return func(c *gin.Context) {
		claims, state := g.Evaluate(c.GetHeader("Authorization"), req)
		switch state {
		case TokenValidRoleAccepted:
			c.Set(ginClaimsKey, claims)
			c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), claimsKey{}, claims))
			c.Next()
			return
		case TokenValidWrongRole:
			g.logger.DebugContext(c.Request.Context(), "guard: denied",
				"state", state.String(), "required", string(req), "role", claims.Role.String(), "path", c.FullPath())
			if g.distinctForbidden {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
		default:
			g.logger.DebugContext(c.Request.Context(), "guard: denied",
				"state", state.String(), "required", string(req), "path", c.FullPath())
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}
