package identity

import (
	"testing"

	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestDecodeClaims(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    types.Claims
	}{
		{
			name:    "empty payload yields least privilege",
			payload: "",
			want: types.Claims{
				Role:             types.RoleViewer,
				AssignedModules:  []string{},
				AssignedProjects: []string{},
			},
		},
		{
			name:    "full claim set",
			payload: `{"role":"admin","assignedModules":["projects","users"],"assignedProjects":["3"]}`,
			want: types.Claims{
				Role:             types.RoleAdmin,
				AssignedModules:  []string{"projects", "users"},
				AssignedProjects: []string{"3"},
			},
		},
		{
			name:    "missing fields fall back to defaults",
			payload: `{"role":"project_manager"}`,
			want: types.Claims{
				Role:             types.RoleProjectManager,
				AssignedModules:  []string{},
				AssignedProjects: []string{},
			},
		},
		{
			name:    "malformed payload yields least privilege",
			payload: `{"role":`,
			want: types.Claims{
				Role:             types.RoleViewer,
				AssignedModules:  []string{},
				AssignedProjects: []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeClaims(datatypes.JSON(tt.payload))
			assert.Equal(t, tt.want, got)
		})
	}
}
