// internal/tests/notification_test.go
package tests

import (
	"net/http"
)

func (suite *APITestSuite) TestNotificationCreateIsOwnerScoped() {
	engineerID := suite.userID("engineer@example.com")
	operationsID := suite.userID("operations@example.com")

	unread := func() int64 {
		w := suite.request(http.MethodGet, "/api/notifications/unread-count", "operations", nil)
		suite.Require().Equal(http.StatusOK, w.Code)
		var body struct {
			Count int64 `json:"count"`
		}
		suite.decode(w, &body)
		return body.Count
	}
	before := unread()

	w := suite.request(http.MethodPost, "/api/notifications", "engineer", map[string]string{
		"userId":  operationsID,
		"message": "Your change order was rejected",
		"type":    "eco",
	})
	suite.Equal(http.StatusForbidden, w.Code, w.Body.String())

	suite.Equal(before, unread())

	// Without a userId the notification lands on the caller.
	w = suite.request(http.MethodPost, "/api/notifications", "engineer", map[string]string{
		"message": "Reminder: review BOM100",
		"type":    "reminder",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		UserID string `json:"userId"`
	}
	suite.decode(w, &created)
	suite.Equal(engineerID, created.UserID)

	w = suite.request(http.MethodPost, "/api/notifications", "admin", map[string]string{
		"userId":  operationsID,
		"message": "Maintenance window tonight",
		"type":    "system",
	})
	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.Equal(before+1, unread())
}
