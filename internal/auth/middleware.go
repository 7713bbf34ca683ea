package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schoolattend/internal/logger"
)

const claimsKey = "auth.claims"

// Authorize verifies the bearer token and enforces the role allow-list.
// An empty allow-list admits any authenticated role.
func Authorize(tokens *Tokens, roles ...Role) gin.HandlerFunc {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		log := logger.FromGin(c)
		tokenStr, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			log.Debug("request unauthenticated", zap.String("reason", "missing_token"))
			abort(c, http.StatusUnauthorized, "No token provided. Authorization denied.")
			return
		}
		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			log.Debug("request unauthenticated", zap.String("reason", "invalid_token"), zap.Error(err))
			abort(c, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}
		c.Set(claimsKey, claims)
		if len(allowed) > 0 {
			if _, ok := allowed[claims.Role]; !ok {
				log.Debug("request forbidden",
					zap.String("role", string(claims.Role)),
					zap.String("principal", claims.PrincipalID),
					zap.String("path", c.FullPath()))
				abort(c, http.StatusForbidden, "Access denied. Insufficient permissions.")
				return
			}
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by Authorize.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}
