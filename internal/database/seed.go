// internal/database/seed.go
package database

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/models"
)

var defaultRoles = []models.RoleDefinition{
	{Name: string(models.RoleAdmin), Description: "Full access including user and role management", Permissions: "all"},
	{Name: string(models.RoleEngineer), Description: "Creates and edits catalog entries and change orders", Permissions: "catalog,eco:create,eco:submit"},
	{Name: string(models.RoleECOManager), Description: "Reviews and advances change orders", Permissions: "eco:decide"},
	{Name: string(models.RoleApprover), Description: "Approves or rejects change orders", Permissions: "eco:decide"},
	{Name: string(models.RoleOperations), Description: "Read access to catalog and change orders", Permissions: "read"},
}

var defaultSettings = map[string]string{
	"companyName":          "Acme Manufacturing",
	"defaultCurrency":      "USD",
	"ecoNumberPrefix":      "ECO-",
	"requireRejectComment": "true",
	"notificationsEnabled": "true",
}

type demoUser struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// Demo accounts keep plaintext passwords; they are re-hashed on first login.
var demoUsers = []demoUser{
	{Name: "Alice Admin", Email: "admin@example.com", Password: "admin123", Role: models.RoleAdmin},
	{Name: "Erin Engineer", Email: "engineer@example.com", Password: "engineer123", Role: models.RoleEngineer},
	{Name: "Mark Manager", Email: "manager@example.com", Password: "manager123", Role: models.RoleECOManager},
	{Name: "Avery Approver", Email: "approver@example.com", Password: "approver123", Role: models.RoleApprover},
	{Name: "Olive Operations", Email: "operations@example.com", Password: "operations123", Role: models.RoleOperations},
}

// SeedInitialData inserts the default roles and settings, plus the demo
// accounts when withDemoUsers is set. Existing rows are left untouched.
func SeedInitialData(db *gorm.DB, withDemoUsers bool) error {
	logrus.Info("Seeding initial data...")

	for _, role := range defaultRoles {
		role := role
		if err := db.Where(models.RoleDefinition{Name: role.Name}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", role.Name, err)
		}
	}

	for key, value := range defaultSettings {
		setting := models.SystemSetting{Key: key, Value: value}
		if err := db.Where(models.SystemSetting{Key: key}).FirstOrCreate(&setting).Error; err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}

	if withDemoUsers {
		for _, demo := range demoUsers {
			var existing models.User
			err := db.Where("email = ?", demo.Email).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up demo user %s: %w", demo.Email, err)
			}

			user := models.User{
				Name:     demo.Name,
				Email:    demo.Email,
				Password: demo.Password,
				Role:     demo.Role,
				Status:   models.UserStatusActive,
			}
			if err := db.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create demo user %s: %w", demo.Email, err)
			}
			logrus.WithField("email", demo.Email).Info("Demo user created")
		}
	}

	logrus.Info("Initial data seeding completed")
	return nil
}
