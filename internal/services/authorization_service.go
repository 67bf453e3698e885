// internal/services/authorization_service.go
package services

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/javajoker/eco-backend/internal/models"
)

// Actions gated by the permission matrix
const (
	PermCatalogWrite   = "catalog.write"
	PermCatalogDelete  = "catalog.delete"
	PermECOCreate      = "eco.create"
	PermECOSubmit      = "eco.submit"
	PermECODecide      = "eco.decide"
	PermECOArchive     = "eco.archive"
	PermUsersManage    = "users.manage"
	PermRolesManage    = "roles.manage"
	PermSettingsManage = "settings.manage"
	PermReportsView    = "reports.view"
)

//go:embed permissions.yaml
var defaultPermissions []byte

type permissionFile struct {
	Permissions map[string][]models.Role `yaml:"permissions"`
}

type AuthorizationService struct {
	matrix map[string]map[models.Role]bool
}

// NewAuthorizationService loads the embedded matrix, or the YAML file at path
// when one is given.
func NewAuthorizationService(path string) (*AuthorizationService, error) {
	data := defaultPermissions
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read permissions file: %w", err)
		}
		data = raw
		logrus.WithField("file", path).Info("Loaded permission matrix")
	}
	return ParsePermissions(data)
}

func ParsePermissions(data []byte) (*AuthorizationService, error) {
	var file permissionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse permissions: %w", err)
	}

	matrix := make(map[string]map[models.Role]bool, len(file.Permissions))
	for action, roles := range file.Permissions {
		allowed := make(map[models.Role]bool, len(roles))
		for _, role := range roles {
			if !role.Valid() {
				return nil, fmt.Errorf("permission %s: unknown role %q", action, role)
			}
			allowed[role] = true
		}
		matrix[action] = allowed
	}

	return &AuthorizationService{matrix: matrix}, nil
}

// Can reports whether role may perform action. Admin may do everything;
// unknown actions are denied to everyone else.
func (s *AuthorizationService) Can(role models.Role, action string) bool {
	if role == models.RoleAdmin {
		return true
	}
	return s.matrix[action][role]
}

// RolesFor lists Admin followed by every other role allowed to perform action.
func (s *AuthorizationService) RolesFor(action string) []models.Role {
	roles := []models.Role{models.RoleAdmin}
	for _, role := range models.AllRoles {
		if role != models.RoleAdmin && s.matrix[action][role] {
			roles = append(roles, role)
		}
	}
	return roles
}
