package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/buildsite-dev/buildsite/db"
	"github.com/buildsite-dev/buildsite/internal/events"
	"github.com/buildsite-dev/buildsite/internal/logging"
	"github.com/buildsite-dev/buildsite/internal/models"
	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/buildsite-dev/buildsite/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateProjectRequest struct {
	Name      string     `json:"name" binding:"required"`
	Location  string     `json:"location"`
	StartDate *time.Time `json:"start_date"`
}

type UpdateProjectRequest struct {
	Name      string     `json:"name" binding:"required"`
	Location  string     `json:"location"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"start_date"`
}

type UpdateTeamRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

type GetProjectResponse struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	Location  string     `json:"location"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"start_date"`
	OwnerUID  string     `json:"owner_uid"`
}

func CreateProject(ctx *gin.Context) {
	var body CreateProjectRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	uid, err := utils.GetCurrentUID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	project := models.Project{
		Name:      body.Name,
		Location:  body.Location,
		Status:    "planning",
		StartDate: body.StartDate,
		OwnerUID:  uid,
	}

	if err := db.DB.Create(&project).Error; err != nil {
		logging.L().Error("creating project", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	ctx.JSON(http.StatusCreated, projectResponse(project))
}

func ListProjects(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var projects []models.Project

	query := db.DB.Order("created_at desc")

	// Non-admins only see projects they own or are assigned to.
	if currentUser.Claims.Role != types.RoleAdmin {
		assigned := append([]string{}, currentUser.Claims.AssignedProjects...)
		query = query.Where("owner_uid = ? OR CAST(id AS TEXT) IN ?", currentUser.UID, idsOrPlaceholder(assigned))
	}

	if err := query.Find(&projects).Error; err != nil {
		logging.L().Error("listing projects", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	responses := make([]GetProjectResponse, 0, len(projects))
	for _, project := range projects {
		responses = append(responses, projectResponse(project))
	}

	ctx.JSON(http.StatusOK, gin.H{"projects": responses})
}

func UpdateProject(ctx *gin.Context) {
	project, ok := fetchProject(ctx)
	if !ok {
		return
	}

	var body UpdateProjectRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updates := map[string]interface{}{
		"name":     body.Name,
		"location": body.Location,
	}

	if body.Status != "" {
		updates["status"] = body.Status
	}

	if body.StartDate != nil {
		updates["start_date"] = body.StartDate
	}

	if err := db.DB.Model(&project).Updates(updates).Error; err != nil {
		logging.L().Error("updating project", zap.Uint("project_id", project.ID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := db.DB.First(&project, project.ID).Error; err != nil {
		logging.L().Error("refreshing project", zap.Uint("project_id", project.ID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, projectResponse(project))
}

func DeleteProject(ctx *gin.Context) {
	project, ok := fetchProject(ctx)
	if !ok {
		return
	}

	if err := db.DB.Delete(&project).Error; err != nil {
		logging.L().Error("deleting project", zap.Uint("project_id", project.ID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

// UpdateTeam assigns or unassigns members. Each change goes through the
// profile document, so the role-change trigger re-syncs that member's claims.
func UpdateTeam(ctx *gin.Context) {
	project, ok := fetchProject(ctx)
	if !ok {
		return
	}

	var body UpdateTeamRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	projectID := strconv.FormatUint(uint64(project.ID), 10)

	for _, uid := range body.Add {
		if err := adjustAssignment(uid, projectID, true); err != nil {
			logging.L().Error("assigning member",
				zap.String("uid", uid),
				zap.String("project_id", projectID),
				zap.Error(err))
		}
	}

	for _, uid := range body.Remove {
		if err := adjustAssignment(uid, projectID, false); err != nil {
			logging.L().Error("unassigning member",
				zap.String("uid", uid),
				zap.String("project_id", projectID),
				zap.Error(err))
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Team updated"})
}

func adjustAssignment(uid, projectID string, add bool) error {
	var before models.UserProfile

	if err := db.DB.Where("uid = ?", uid).First(&before).Error; err != nil {
		return err
	}

	assigned := make([]string, 0, len(before.AssignedProjects)+1)
	present := false

	for _, existing := range before.AssignedProjects {
		if existing == projectID {
			present = true
			if !add {
				continue
			}
		}
		assigned = append(assigned, existing)
	}

	if add && !present {
		assigned = append(assigned, projectID)
	}

	if add == present {
		// Already in the desired state; skip the write so no spurious
		// profile-updated event fires.
		return nil
	}

	err := db.DB.Model(&models.UserProfile{}).
		Where("uid = ?", uid).
		Update("assigned_projects", datatypes.NewJSONSlice(assigned)).Error
	if err != nil {
		return err
	}

	var after models.UserProfile
	if err := db.DB.Where("uid = ?", uid).First(&after).Error; err != nil {
		return err
	}

	bus.Publish(events.ProfileUpdated{Before: before, After: after})
	BroadcastUserRefresh(uid, "profile_updated")

	return nil
}

func fetchProject(ctx *gin.Context) (models.Project, bool) {
	var project models.Project

	if err := db.DB.Where("id = ?", ctx.Param("project_id")).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			logging.L().Error("fetching project", zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return models.Project{}, false
	}

	return project, true
}

func projectResponse(project models.Project) GetProjectResponse {
	return GetProjectResponse{
		ID:        project.ID,
		Name:      project.Name,
		Location:  project.Location,
		Status:    project.Status,
		StartDate: project.StartDate,
		OwnerUID:  project.OwnerUID,
	}
}

func idsOrPlaceholder(ids []string) []string {
	if len(ids) == 0 {
		// gorm renders an empty IN as invalid SQL; match nothing instead.
		return []string{""}
	}
	return ids
}
