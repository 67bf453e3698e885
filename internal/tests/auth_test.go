// internal/tests/auth_test.go
package tests

import (
	"net/http"
)

func (suite *APITestSuite) TestHealth() {
	w := suite.request(http.MethodGet, "/health", "", nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "healthy")
	suite.NotEmpty(w.Header().Get("X-Request-ID"))

	w = suite.request(http.MethodGet, "/metrics", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "eco_manager_http_requests_total")
}

func (suite *APITestSuite) TestLoginFailures() {
	w := suite.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "wrong",
	})
	suite.Equal(http.StatusUnauthorized, w.Code)

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	suite.decode(w, &body)
	suite.Equal("UNAUTHORIZED", body.Code)
	suite.NotEmpty(body.Error)

	w = suite.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "admin123",
		"remember": "yes",
	})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/auth/login", "", `{"email":`)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestProtectedRoutesRequireToken() {
	w := suite.request(http.MethodGet, "/api/products", "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)

	// Query-string tokens are only honoured on the websocket route.
	w = suite.request(http.MethodGet, "/api/products?token="+suite.tokens["engineer"], "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)

	req := suite.request(http.MethodGet, "/api/profile", "engineer", nil)
	suite.Equal(http.StatusOK, req.Code)

	var profile struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	suite.decode(req, &profile)
	suite.Equal("engineer@example.com", profile.Email)
	suite.Equal("Engineer", profile.Role)
	suite.NotContains(req.Body.String(), "engineer123")
}

func (suite *APITestSuite) TestRefreshAndLogout() {
	w := suite.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "approver@example.com",
		"password": "approver123",
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	var login struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	suite.decode(w, &login)

	w = suite.request(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": login.RefreshToken})
	suite.Equal(http.StatusOK, w.Code)

	// Operations may not end another user's sessions.
	w = suite.request(http.MethodPost, "/api/auth/logout", "operations", map[string]string{"userId": suite.userID("approver@example.com")})
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, "/api/auth/logout", "approver", nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": login.RefreshToken})
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestUserManagementIsAdminOnly() {
	newUser := map[string]string{
		"name":     "Quinn Quality",
		"email":    "quinn@example.com",
		"password": "quality123",
		"role":     "Approver",
	}

	w := suite.request(http.MethodPost, "/api/users", "engineer", newUser)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, "/api/users", "admin", newUser)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/api/users", "admin", newUser)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodGet, "/api/users?email=QUINN@example.com", "engineer", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Quinn Quality")

	w = suite.request(http.MethodDelete, "/api/users/"+suite.userID("admin@example.com"), "admin", nil)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *APITestSuite) userID(email string) string {
	var id string
	suite.Require().NoError(suite.db.Table("users").Where("email = ?", email).Select("id").Scan(&id).Error)
	return id
}
