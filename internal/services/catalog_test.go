// internal/services/catalog_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

var firstPage = utils.PaginationParams{Page: 1, Limit: 20}

func TestCreateProductRecordsInitialVersion(t *testing.T) {
	f := newFixture(t)
	product := f.createProduct(t, "P-1", "Desk")

	assert.Equal(t, models.InitialVersion, product.CurrentVersion)
	assert.Equal(t, models.ProductStatusActive, product.Status)
	require.Len(t, product.Versions, 1)
	assert.Equal(t, "Initial creation", product.Versions[0].Note)
}

func TestDuplicateProductLeavesNoOrphanVersion(t *testing.T) {
	f := newFixture(t)
	f.createProduct(t, "P-1", "Desk")

	_, err := f.products.CreateProduct(context.Background(), &CreateProductRequest{
		ID: "P-1", Name: "Other desk", SKU: "SKU-X",
	})
	assert.True(t, utils.IsKind(err, utils.KindConflict), "got %v", err)

	var versions int64
	f.db.Model(&models.ProductVersion{}).Where("product_id = ?", "P-1").Count(&versions)
	assert.Equal(t, int64(1), versions)
}

func TestProductCreationNotifiesActiveUsersOnly(t *testing.T) {
	f := newFixture(t)
	inactive := seedUser(t, f.db, "Ivy Inactive", models.RoleEngineer)
	f.db.Model(&models.User{}).Where("id = ?", inactive.ID).Update("status", models.UserStatusInactive)

	f.createProduct(t, "P-1", "Desk")

	for _, actor := range []Actor{f.admin, f.engineer, f.manager, f.approver, f.ops} {
		list, err := f.notif.List(context.Background(), actor.ID)
		require.NoError(t, err)
		require.Len(t, list, 1, actor.Name)
		assert.Equal(t, "product_created", list[0].Type)
		assert.Equal(t, "/products/P-1", list[0].Link)
	}

	list, err := f.notif.List(context.Background(), inactive.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 5, f.publisher.count())
}

func TestProductSearchIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.createProduct(t, "P-1", "Oak Desk")
	f.createProduct(t, "P-2", "Walnut Chair")

	result, err := f.products.ListProducts(context.Background(), ProductFilter{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 20, Search: "oAK"},
	})
	require.NoError(t, err)
	products := result.Data.([]models.Product)
	require.Len(t, products, 1)
	assert.Equal(t, "P-1", products[0].ID)
	assert.Equal(t, int64(1), result.Total)
}

func TestDeleteReferencedProductConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createProduct(t, "P-1", "Desk")
	f.createProduct(t, "P-2", "Chair")
	f.createECO(t, "ECO-1", "P-1")

	err := f.products.DeleteProduct(ctx, "P-1")
	assert.True(t, utils.IsKind(err, utils.KindConflict))

	require.NoError(t, f.products.DeleteProduct(ctx, "P-2"))
	_, err = f.products.GetProduct(ctx, "P-2")
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	var versions int64
	f.db.Model(&models.ProductVersion{}).Where("product_id = ?", "P-2").Count(&versions)
	assert.Zero(t, versions)
}

func TestCreateBoMRequiresProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.boms.CreateBoM(context.Background(), &CreateBoMRequest{ID: "BOM-1", ProductID: "missing"})
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestBoMListFiltersStatusExactlyAndSearchesProductName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createProduct(t, "P-1", "Oak Desk")
	f.createProduct(t, "P-2", "Walnut Chair")

	for _, req := range []CreateBoMRequest{
		{ID: "BOM-1", ProductID: "P-1", Status: models.BoMStatusActive},
		{ID: "BOM-2", ProductID: "P-2", Status: models.BoMStatusDraft},
		{ID: "BOM-3", ProductID: "P-2", Status: models.BoMStatusArchived},
	} {
		_, err := f.boms.CreateBoM(ctx, &req)
		require.NoError(t, err)
	}

	result, err := f.boms.ListBoMs(ctx, BoMFilter{PaginationParams: firstPage, Status: "Draft"})
	require.NoError(t, err)
	boms := result.Data.([]models.BoM)
	require.Len(t, boms, 1)
	assert.Equal(t, "BOM-2", boms[0].ID)
	assert.Equal(t, "Walnut Chair", boms[0].ProductName)

	// Status is an exact match, not a substring.
	result, err = f.boms.ListBoMs(ctx, BoMFilter{PaginationParams: firstPage, Status: "Dra"})
	require.NoError(t, err)
	assert.Empty(t, result.Data.([]models.BoM))

	result, err = f.boms.ListBoMs(ctx, BoMFilter{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 20, Search: "WALNUT"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Data.([]models.BoM), 2)
}

func TestUpdateBoMReplacesComponentsAndRecounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createProduct(t, "P-1", "Desk")

	bom, err := f.boms.CreateBoM(ctx, &CreateBoMRequest{
		ID:        "BOM-1",
		ProductID: "P-1",
		Components: []ComponentInput{
			{Name: "Top", Quantity: 1},
			{Name: "Leg", Quantity: 4},
		},
		Operations: []OperationInput{{Name: "Assembly", Duration: 30, Unit: "min"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, bom.ComponentsCount)
	assert.Len(t, bom.Components, 2)
	assert.Len(t, bom.Operations, 1)

	components := []ComponentInput{
		{Name: "Top", Quantity: 1},
		{Name: "Leg", Quantity: 4},
		{Name: "Screw", Quantity: 16},
	}
	bom, err = f.boms.UpdateBoM(ctx, "BOM-1", &UpdateBoMRequest{Components: &components})
	require.NoError(t, err)
	assert.Equal(t, 3, bom.ComponentsCount)
	assert.Len(t, bom.Components, 3)
	assert.Len(t, bom.Operations, 1)

	var stored int64
	f.db.Model(&models.BoMComponent{}).Where("bom_id = ?", "BOM-1").Count(&stored)
	assert.Equal(t, int64(3), stored)
}

func TestDeleteBoMReferencedByECOConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createProduct(t, "P-1", "Desk")
	_, err := f.boms.CreateBoM(ctx, &CreateBoMRequest{ID: "BOM-1", ProductID: "P-1"})
	require.NoError(t, err)

	bomID := "BOM-1"
	_, err = f.ecos.CreateECO(ctx, f.engineer, &CreateECORequest{
		ID: "ECO-1", Title: "x", Type: models.ECOTypeBoM, ProductID: "P-1", BoMID: &bomID, EffectiveDate: "2030-01-01",
	})
	require.NoError(t, err)

	err = f.boms.DeleteBoM(ctx, "BOM-1")
	assert.True(t, utils.IsKind(err, utils.KindConflict))
}
