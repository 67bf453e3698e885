// internal/tests/eco_flow_test.go
package tests

import (
	"net/http"
	"time"
)

type ecoBody struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	Stage           string `json:"stage"`
	ProductName     string `json:"productName"`
	CurrentVersion  string `json:"currentVersion"`
	ProposedVersion string `json:"proposedVersion"`
	Approvals       []struct {
		Status string `json:"status"`
	} `json:"approvals"`
	AuditLog []struct {
		Action string `json:"action"`
	} `json:"auditLog"`
}

func (suite *APITestSuite) TestCatalogWritesRequirePermission() {
	product := map[string]interface{}{
		"id":   "HTTP-P-0",
		"name": "Forbidden Lamp",
		"sku":  "LAMP-0",
	}

	w := suite.request(http.MethodPost, "/api/products", "operations", product)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, "/api/products", "engineer", map[string]interface{}{"id": "HTTP-P-X"})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodGet, "/api/products/does-not-exist", "operations", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestECOLifecycleOverHTTP() {
	w := suite.request(http.MethodPost, "/api/products", "engineer", map[string]interface{}{
		"id":        "HTTP-P-1",
		"name":      "Standing Desk",
		"category":  "Furniture",
		"salePrice": 499.0,
		"costPrice": 300.0,
		"sku":       "DESK-1",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/api/products?search=standing", "operations", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("1", w.Header().Get("X-Total-Count"))

	w = suite.request(http.MethodPost, "/api/eco", "engineer", map[string]interface{}{
		"id":            "HTTP-ECO-1",
		"title":         "Raise desk price",
		"type":          "Product",
		"productId":     "HTTP-P-1",
		"effectiveDate": time.Now().AddDate(0, 0, 14).Format("2006-01-02"),
		"changes": []map[string]string{
			{"fieldName": "salePrice", "oldValue": "499", "newValue": "549"},
		},
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var eco ecoBody
	suite.decode(w, &eco)
	suite.Equal("Draft", eco.Status)
	suite.Equal("Standing Desk", eco.ProductName)
	suite.Equal("v1.0", eco.CurrentVersion)
	suite.Equal("v1.1", eco.ProposedVersion)

	// Approvers cannot submit and nothing can be approved before submission.
	w = suite.request(http.MethodPost, "/api/eco/HTTP-ECO-1/submit", "approver", nil)
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.request(http.MethodPost, "/api/eco/HTTP-ECO-1/approve", "approver", nil)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodPost, "/api/eco/HTTP-ECO-1/submit", "engineer", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/api/eco/HTTP-ECO-1/approve", "approver", map[string]string{"comment": "ok"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/api/eco/HTTP-ECO-1/complete", "manager", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &eco)
	suite.Equal("Completed", eco.Status)
	suite.Equal("Completed", eco.Stage)
	suite.Len(eco.Approvals, 2)
	suite.Require().Len(eco.AuditLog, 4)
	suite.Equal("Completed", eco.AuditLog[0].Action)

	w = suite.request(http.MethodGet, "/api/products/HTTP-P-1", "operations", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var product struct {
		CurrentVersion string `json:"currentVersion"`
	}
	suite.decode(w, &product)
	suite.Equal("v1.1", product.CurrentVersion)

	w = suite.request(http.MethodGet, "/api/eco?status=Completed&productId=HTTP-P-1", "operations", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("1", w.Header().Get("X-Total-Count"))
	suite.Equal("1", w.Header().Get("X-Page"))

	// The engineer was notified of the decision.
	w = suite.request(http.MethodGet, "/api/notifications/unread-count", "engineer", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var unread struct {
		Count int64 `json:"count"`
	}
	suite.decode(w, &unread)
	suite.GreaterOrEqual(unread.Count, int64(1))

	w = suite.request(http.MethodPost, "/api/notifications", "engineer", map[string]string{"action": "mark-all-read"})
	suite.Equal(http.StatusOK, w.Code)
	w = suite.request(http.MethodGet, "/api/notifications/unread-count", "engineer", nil)
	suite.decode(w, &unread)
	suite.Zero(unread.Count)

	w = suite.request(http.MethodPost, "/api/eco/HTTP-ECO-1/archive", "manager", nil)
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.request(http.MethodPost, "/api/eco/HTTP-ECO-1/archive", "admin", nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestReportsAndSettings() {
	w := suite.request(http.MethodGet, "/api/dashboard/stats", "operations", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "totalProducts")

	w = suite.request(http.MethodGet, "/api/reports/eco-trend?days=abc", "operations", nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodGet, "/api/reports/ecos/export?format=csv", "operations", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Header().Get("Content-Disposition"), "ecos.csv")

	w = suite.request(http.MethodGet, "/api/settings", "operations", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "companyName")

	w = suite.request(http.MethodPut, "/api/settings", "engineer", map[string]string{"companyName": "X"})
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPut, "/api/settings", "admin", map[string]interface{}{"companyName": "Globex", "maxApprovers": 3})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Contains(w.Body.String(), "Globex")

	w = suite.request(http.MethodGet, "/api/roles", "operations", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "ECO Manager")
}

func (suite *APITestSuite) TestBoMChangeOrderOverHTTP() {
	w := suite.request(http.MethodPost, "/api/products", "engineer", map[string]interface{}{
		"id":   "P100",
		"name": "Test Widget",
		"sku":  "SKU-T1",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/api/bom", "engineer", map[string]interface{}{
		"id":        "BOM100",
		"productId": "P100",
		"components": []map[string]interface{}{
			{"name": "Bracket", "quantity": 2, "unit": "pcs"},
		},
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/api/eco", "engineer", map[string]interface{}{
		"id":              "ECO-9001",
		"title":           "Stronger bracket",
		"type":            "BoM",
		"productId":       "P100",
		"bomId":           "BOM100",
		"currentVersion":  "v1.0",
		"proposedVersion": "v1.1",
		"effectiveDate":   time.Now().AddDate(0, 0, 30).Format("2006-01-02"),
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/api/eco/ECO-9001/submit", "engineer", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = suite.request(http.MethodPost, "/api/eco/ECO-9001/approve", "manager", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = suite.request(http.MethodPost, "/api/eco/ECO-9001/complete", "manager", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/api/eco/ECO-9001", "operations", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var eco ecoBody
	suite.decode(w, &eco)
	suite.Equal("Completed", eco.Status)
	suite.Equal("Completed", eco.Stage)
	suite.Require().Len(eco.Approvals, 2)
	suite.Equal("Approved", eco.Approvals[0].Status)
	suite.Equal("Completed", eco.Approvals[1].Status)

	actions := make([]string, 0, len(eco.AuditLog))
	for i := len(eco.AuditLog) - 1; i >= 0; i-- {
		actions = append(actions, eco.AuditLog[i].Action)
	}
	suite.Equal([]string{"Created", "Submitted for approval", "Approved", "Completed"}, actions)

	w = suite.request(http.MethodGet, "/api/bom/BOM100", "operations", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var bom struct {
		Version string `json:"version"`
	}
	suite.decode(w, &bom)
	suite.Equal("v1.1", bom.Version)
}
