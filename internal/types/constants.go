package types

import (
	"os"
	"strings"
)

const ContextUserKey = "user"

// Roles, in descending order of privilege.
const (
	RoleAdmin          = "admin"
	RoleProjectManager = "project_manager"
	RoleViewer         = "viewer"
)

// Profile statuses.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusInvited  = "invited"
	StatusRejected = "rejected"
)

// Module identifiers gating feature areas of the client application.
const (
	ModuleDashboard        = "dashboard"
	ModuleProjects         = "projects"
	ModuleUsers            = "users"
	ModuleContractors      = "contractors"
	ModuleDailyReport      = "daily-report"
	ModuleMonthlyReport    = "monthly-report"
	ModuleSafetyEvents     = "safety-events"
	ModuleProjectTeam      = "project-team"
	ModuleDocuments        = "documents"
	ModuleCalendar         = "calendar"
	ModuleMap              = "map"
	ModuleWeather          = "weather"
	ModuleReportsAnalytics = "reports-analytics"
)

// DefaultAdminModules returns the grant list given to the first registered user.
func DefaultAdminModules() []string {
	return []string{
		ModuleDashboard,
		ModuleProjects,
		ModuleUsers,
		ModuleContractors,
		ModuleDailyReport,
		ModuleMonthlyReport,
		ModuleSafetyEvents,
		ModuleProjectTeam,
		ModuleDocuments,
		ModuleCalendar,
		ModuleMap,
		ModuleWeather,
		ModuleReportsAnalytics,
	}
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleProjectManager, RoleViewer:
		return true
	}
	return false
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusActive, StatusInvited, StatusRejected:
		return true
	}
	return false
}

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	AllowedOrigins = initAllowedOrigins()
)

func initAllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if allowedOrigins := os.Getenv("ALLOWED_ORIGINS"); allowedOrigins != "" {
		envOrigins := strings.Split(allowedOrigins, ",")
		for _, origin := range envOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}
