// internal/database/connection_test.go
package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/eco-backend/internal/config"
	"github.com/javajoker/eco-backend/internal/models"
)

func TestMigrationsStoreAttachmentLists(t *testing.T) {
	db, err := Initialize(config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: "file:migrations_test?mode=memory&cache=shared",
		LogLevel:   "silent",
	})
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, RunMigrations(db))
	assert.True(t, db.Migrator().HasColumn(&models.ECO{}, "Attachments"))

	product := models.Product{
		ID:             "P-MIG",
		Name:           "Shelf",
		SKU:            "SHELF-1",
		Status:         models.ProductStatusActive,
		CurrentVersion: models.InitialVersion,
	}
	require.NoError(t, db.Create(&product).Error)

	eco := models.ECO{
		ID:              "ECO-MIG",
		Title:           "Add bracket drawing",
		Type:            models.ECOTypeProduct,
		ProductID:       product.ID,
		CurrentVersion:  "v1.0",
		ProposedVersion: "v1.1",
		EffectiveDate:   time.Now(),
		Status:          models.ECOStatusDraft,
		Stage:           models.ECOStageDraft,
		Attachments:     models.StringArray{"ecos/ECO-MIG/drawing.pdf", "ecos/ECO-MIG/notes, rev 2.txt"},
	}
	require.NoError(t, db.Omit("Changes", "Approvals", "AuditLog", "Product").Create(&eco).Error)

	var stored models.ECO
	require.NoError(t, db.Where("id = ?", eco.ID).First(&stored).Error)
	assert.Equal(t, eco.Attachments, stored.Attachments)

	// Migrating an existing schema again is a no-op.
	assert.NoError(t, RunMigrations(db))
}
