package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/buildsite-dev/buildsite/db"
	"github.com/buildsite-dev/buildsite/internal/events"
	"github.com/buildsite-dev/buildsite/internal/identity"
	"github.com/buildsite-dev/buildsite/internal/logging"
	"github.com/buildsite-dev/buildsite/internal/models"
	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UpdateUserRequest struct {
	FirstName        *string   `json:"first_name"`
	LastName         *string   `json:"last_name"`
	Role             *string   `json:"role"`
	Status           *string   `json:"status"`
	AssignedModules  *[]string `json:"assigned_modules"`
	AssignedProjects *[]string `json:"assigned_projects"`
}

func ListUsers(ctx *gin.Context) {
	var profiles []models.UserProfile

	if err := db.DB.Order("created_at asc").Find(&profiles).Error; err != nil {
		logging.L().Error("listing users", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	users := make([]types.UserResponse, 0, len(profiles))
	for _, profile := range profiles {
		users = append(users, profileResponse(profile))
	}

	ctx.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateUser applies an admin edit to a profile and publishes the before and
// after snapshots so the role-change trigger can re-sync claims if needed.
func UpdateUser(ctx *gin.Context) {
	uid := ctx.Param("uid")

	var before models.UserProfile

	if err := db.DB.Where("uid = ?", uid).First(&before).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		logging.L().Error("fetching profile", zap.String("uid", uid), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var body UpdateUserRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updates := make(map[string]interface{})

	if body.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*body.FirstName)
	}

	if body.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*body.LastName)
	}

	if body.Role != nil {
		if !types.ValidRole(*body.Role) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		updates["role"] = *body.Role
	}

	if body.Status != nil {
		if !types.ValidStatus(*body.Status) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		updates["status"] = *body.Status
	}

	if body.AssignedModules != nil {
		updates["assigned_modules"] = datatypes.NewJSONSlice(*body.AssignedModules)
	}

	if body.AssignedProjects != nil {
		updates["assigned_projects"] = datatypes.NewJSONSlice(*body.AssignedProjects)
	}

	if len(updates) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields to update"})
		return
	}

	if err := db.DB.Model(&models.UserProfile{}).Where("uid = ?", uid).Updates(updates).Error; err != nil {
		logging.L().Error("updating profile", zap.String("uid", uid), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var after models.UserProfile

	if err := db.DB.Where("uid = ?", uid).First(&after).Error; err != nil {
		logging.L().Error("refreshing profile", zap.String("uid", uid), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	bus.Publish(events.ProfileUpdated{Before: before, After: after})
	BroadcastUserRefresh(uid, "profile_updated")

	ctx.JSON(http.StatusOK, gin.H{"user": profileResponse(after)})
}

// DeleteUser removes the identity; the deletion trigger takes care of the
// profile document and the user counter.
func DeleteUser(ctx *gin.Context) {
	uid := ctx.Param("uid")

	if err := identitySvc.Delete(ctx.Request.Context(), uid); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		logging.L().Error("deleting identity", zap.String("uid", uid), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
