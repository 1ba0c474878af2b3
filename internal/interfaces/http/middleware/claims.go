package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"agentgate/internal/shared/config"
	"agentgate/internal/shared/constants"
	"agentgate/internal/shared/logger"
	"agentgate/internal/shared/utils"
)

// defaultClaimsKey is the JWT claim holding the identity's role strings
// when none is configured.
const defaultClaimsKey = "roles"

// ClaimsMiddleware extracts the subject id and identity-claim strings
// from a bearer JWT. The token's provenance beyond its signature is an
// upstream concern; the engine only consumes the asserted claims.
type ClaimsMiddleware struct {
	jwtCfg      *config.JWTConfig
	adminClaims []string
	logger      logger.Interface
}

func NewClaimsMiddleware(jwtCfg *config.JWTConfig, appRoleCfg *config.AppRoleConfig, log logger.Interface) *ClaimsMiddleware {
	return &ClaimsMiddleware{
		jwtCfg:      jwtCfg,
		adminClaims: appRoleCfg.AdminClaims,
		logger:      log,
	}
}

// ExtractClaims verifies the bearer token and stores the subject id and
// claim list on the request context.
func (m *ClaimsMiddleware) ExtractClaims() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		subject, claims, err := m.parseToken(parts[1])
		if err != nil {
			m.logger.Warnw("failed to verify token", "error", err)
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeySubjectID, subject)
		c.Set(constants.ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireAdmin rejects requests whose claim set contains none of the
// configured admin claims. It must run after ExtractClaims.
func (m *ClaimsMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		for _, claim := range claims {
			for _, adminClaim := range m.adminClaims {
				if claim == adminClaim {
					c.Next()
					return
				}
			}
		}
		utils.ErrorResponse(c, http.StatusForbidden, "admin access required")
		c.Abort()
	}
}

func (m *ClaimsMiddleware) parseToken(tokenString string) (string, []string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.jwtCfg.Secret), nil
	})
	if err != nil {
		return "", nil, err
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", nil, fmt.Errorf("unexpected claims type")
	}

	subject, err := mapClaims.GetSubject()
	if err != nil || subject == "" {
		return "", nil, fmt.Errorf("token has no subject")
	}

	claimsKey := m.jwtCfg.ClaimsKey
	if claimsKey == "" {
		claimsKey = defaultClaimsKey
	}

	return subject, extractClaimStrings(mapClaims[claimsKey]), nil
}

// extractClaimStrings accepts either a JSON array of strings or a single
// string, the two shapes identity providers commonly emit.
func extractClaimStrings(raw interface{}) []string {
	switch v := raw.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// GetSubjectID returns the authenticated subject id from the context.
func GetSubjectID(c *gin.Context) string {
	if v, ok := c.Get(constants.ContextKeySubjectID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetClaims returns the identity-claim strings from the context.
func GetClaims(c *gin.Context) []string {
	if v, ok := c.Get(constants.ContextKeyClaims); ok {
		if claims, ok := v.([]string); ok {
			return claims
		}
	}
	return nil
}
