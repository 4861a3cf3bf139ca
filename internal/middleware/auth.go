package middleware

import (
	"net/http"
	"strings"

	"github.com/buildsite-dev/buildsite/internal/auth"
	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/gin-gonic/gin"
)

// AuthenticatedUser is what the middleware places in the gin context: the
// token's subject plus the claim set cached inside the token. Authorization
// decisions read these claims; they may lag the profile until the client
// forces a token refresh.
type AuthenticatedUser struct {
	UID    string       `json:"uid"`
	Email  string       `json:"email"`
	Claims types.Claims `json:"claims"`
}

func AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := extractToken(ctx)

		if tokenString == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		token, err := auth.VerifyJWT(tokenString)

		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		uid, email, claims, err := auth.ExtractClaims(token)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		ctx.Set(types.ContextUserKey, AuthenticatedUser{
			UID:    uid,
			Email:  email,
			Claims: claims,
		})
		ctx.Next()
	}
}

// RequireRole gates a route group to one exact role.
func RequireRole(role string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := currentUser(ctx)

		if !ok || user.Claims.Role != role {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}

		ctx.Next()
	}
}

// RequireModule gates a route group to users granted a module. Admins pass
// regardless of their module list.
func RequireModule(module string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := currentUser(ctx)

		if !ok {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}

		if user.Claims.Role == types.RoleAdmin {
			ctx.Next()
			return
		}

		for _, granted := range user.Claims.AssignedModules {
			if granted == module {
				ctx.Next()
				return
			}
		}

		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Module access not granted"})
	}
}

func currentUser(ctx *gin.Context) (AuthenticatedUser, bool) {
	value, exists := ctx.Get(types.ContextUserKey)
	if !exists {
		return AuthenticatedUser{}, false
	}
	user, ok := value.(AuthenticatedUser)
	return user, ok
}

func extractToken(ctx *gin.Context) string {
	if cookie, err := ctx.Cookie("token"); err == nil && cookie != "" {
		return cookie
	}

	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}
