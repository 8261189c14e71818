package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/enmanuelbasulto/fop2-clone/internal/apierrors"
)

// Context keys populated by RequireAuth.
const (
	CtxExtension = "extension"
	CtxUserName  = "user_name"
)

// RequireAuth validates the session token from the auth_token cookie or a
// bearer Authorization header and stores the operator identity on the
// context.
func RequireAuth(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("auth_token")
		if err != nil || token == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					token = parts[1]
				}
			}
		}
		if token == "" {
			apierrors.Error(c, apierrors.CodeUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			c.SetCookie("auth_token", "", -1, "/", "", false, true)
			apierrors.Error(c, apierrors.CodeInvalidToken)
			c.Abort()
			return
		}

		c.Set(CtxExtension, claims.Extension)
		c.Set(CtxUserName, claims.Name)
		c.Next()
	}
}
