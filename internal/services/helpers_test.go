// internal/services/helpers_test.go
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/config"
	"github.com/javajoker/eco-backend/internal/database"
	"github.com/javajoker/eco-backend/internal/models"
)

// newTestDB opens a private in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Initialize(config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8]),
		LogLevel:   "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string, role models.Role) Actor {
	t.Helper()

	user := models.User{
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Password: "secret123",
		Role:     role,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, db.Create(&user).Error)
	return Actor{ID: user.ID.String(), Name: name, Role: role}
}

func newAuthz(t *testing.T) *AuthorizationService {
	t.Helper()
	authz, err := NewAuthorizationService("")
	require.NoError(t, err)
	return authz
}

func newTestStorage(t *testing.T) *StorageService {
	return NewStorageServiceWithClient(nil, config.AWSConfig{}, config.StorageConfig{
		LocalDir:     t.TempDir(),
		PublicURL:    "http://localhost/uploads",
		MaxImageSize: 1 << 20,
		MaxDocSize:   1 << 20,
	})
}

type publishedEvent struct {
	UserID string
	Type   string
}

// recordingPublisher captures websocket pushes.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(userID string, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Type: eventType})
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fixture struct {
	db        *gorm.DB
	publisher *recordingPublisher
	notif     *NotificationService
	products  *ProductService
	boms      *BoMService
	ecos      *ECOService

	admin    Actor
	engineer Actor
	manager  Actor
	approver Actor
	ops      Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	publisher := &recordingPublisher{}
	notif := NewNotificationService(db, publisher)

	return &fixture{
		db:        db,
		publisher: publisher,
		notif:     notif,
		products:  NewProductService(db, notif),
		boms:      NewBoMService(db),
		ecos:      NewECOService(db, newAuthz(t), notif, newTestStorage(t)),
		admin:     seedUser(t, db, "Alice Admin", models.RoleAdmin),
		engineer:  seedUser(t, db, "Erin Engineer", models.RoleEngineer),
		manager:   seedUser(t, db, "Mark Manager", models.RoleECOManager),
		approver:  seedUser(t, db, "Avery Approver", models.RoleApprover),
		ops:       seedUser(t, db, "Olive Operations", models.RoleOperations),
	}
}

func (f *fixture) createProduct(t *testing.T, id, name string) *models.Product {
	t.Helper()
	product, err := f.products.CreateProduct(context.Background(), &CreateProductRequest{
		ID:        id,
		Name:      name,
		Category:  "Furniture",
		SalePrice: 120,
		CostPrice: 80,
		SKU:       "SKU-" + id,
	})
	require.NoError(t, err)
	return product
}

func (f *fixture) createECO(t *testing.T, id, productID string, changes ...ChangeInput) *models.ECO {
	t.Helper()
	eco, err := f.ecos.CreateECO(context.Background(), f.engineer, &CreateECORequest{
		ID:            id,
		Title:         "Update " + productID,
		Type:          models.ECOTypeProduct,
		ProductID:     productID,
		EffectiveDate: time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		Changes:       changes,
	})
	require.NoError(t, err)
	return eco
}
