package types

// Claims is the authorization claim set attached to an identity's tokens.
// It mirrors the profile's role and grant fields as of the last sync and is
// always written as a complete object, never patched.
type Claims struct {
	Role             string   `json:"role"`
	AssignedModules  []string `json:"assignedModules"`
	AssignedProjects []string `json:"assignedProjects"`
}

type UserResponse struct {
	UID              string   `json:"uid"`
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Email            string   `json:"email"`
	Role             string   `json:"role"`
	Status           string   `json:"status"`
	AssignedModules  []string `json:"assigned_modules"`
	AssignedProjects []string `json:"assigned_projects"`
}
