package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/buildsite-dev/buildsite/db"
	"github.com/buildsite-dev/buildsite/internal/auth"
	"github.com/buildsite-dev/buildsite/internal/identity"
	"github.com/buildsite-dev/buildsite/internal/logging"
	"github.com/buildsite-dev/buildsite/internal/models"
	"github.com/buildsite-dev/buildsite/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

var (
	Domain = os.Getenv("DOMAIN")
)

// Register creates an identity. The profile and token claims are initialized
// asynchronously by the signup trigger, so the first token carries no grants;
// the client refreshes its token once the websocket hints the claims landed.
func Register(ctx *gin.Context) {
	var body RegisterRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id, err := identitySvc.Register(ctx.Request.Context(), body.Email, body.Password, body.DisplayName)

	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
			return
		}
		logging.L().Error("registration failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	claims, err := identitySvc.CustomClaims(ctx.Request.Context(), id.UID)

	if err != nil {
		logging.L().Error("reading claims after registration", zap.String("uid", id.UID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := auth.GenerateJWT(id.UID, id.Email, claims)

	if err != nil {
		logging.L().Error("generating token", zap.String("uid", id.UID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setTokenCookie(ctx, token)

	ctx.JSON(http.StatusCreated, gin.H{
		"uid":   id.UID,
		"email": id.Email,
	})
}

func Login(ctx *gin.Context) {
	var body LoginRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id, err := identitySvc.Authenticate(ctx.Request.Context(), body.Email, body.Password)

	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
			return
		}
		logging.L().Error("login failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	claims := identity.DecodeClaims(id.CustomClaims)

	token, err := auth.GenerateJWT(id.UID, id.Email, claims)

	if err != nil {
		logging.L().Error("generating token", zap.String("uid", id.UID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setTokenCookie(ctx, token)

	ctx.JSON(http.StatusOK, gin.H{
		"uid":    id.UID,
		"email":  id.Email,
		"claims": claims,
	})
}

// RefreshToken is the forced token refresh: it re-reads the identity store's
// current custom claims and mints a fresh token, bypassing whatever claim
// snapshot the caller's cached token carries.
func RefreshToken(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	claims, err := identitySvc.CustomClaims(ctx.Request.Context(), currentUser.UID)

	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Identity no longer exists"})
			return
		}
		logging.L().Error("reading claims for refresh", zap.String("uid", currentUser.UID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := auth.GenerateJWT(currentUser.UID, currentUser.Email, claims)

	if err != nil {
		logging.L().Error("generating token", zap.String("uid", currentUser.UID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setTokenCookie(ctx, token)

	ctx.JSON(http.StatusOK, gin.H{"claims": claims})
}

func Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var profile models.UserProfile

	if err := db.DB.Where("uid = ?", currentUser.UID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Signup trigger hasn't landed the profile yet.
			ctx.JSON(http.StatusOK, gin.H{
				"uid":    currentUser.UID,
				"email":  currentUser.Email,
				"status": "provisioning",
			})
			return
		}
		logging.L().Error("fetching profile", zap.String("uid", currentUser.UID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": profileResponse(profile)})
}

func Logout(ctx *gin.Context) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		Domain:   Domain,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func setTokenCookie(ctx *gin.Context, token string) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Domain:   Domain,
		MaxAge:   60 * 60 * 24 * 7,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}
