// internal/services/notification_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

func TestMarkReadIsScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	publisher := &recordingPublisher{}
	notif := NewNotificationService(db, publisher)
	erin := seedUser(t, db, "Erin Engineer", models.RoleEngineer)
	owen := seedUser(t, db, "Owen Ops", models.RoleOperations)
	ctx := context.Background()

	created, err := notif.Create(ctx, &CreateNotificationRequest{UserID: erin.ID, Message: "hello", Type: "info"})
	require.NoError(t, err)
	assert.True(t, created.IsUnread)
	assert.Equal(t, 1, publisher.count())

	err = notif.MarkRead(ctx, owen.ID, created.ID.String())
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	require.NoError(t, notif.MarkRead(ctx, erin.ID, created.ID.String()))
	count, err := notif.UnreadCount(ctx, erin.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkAllReadLeavesOtherUsersUnread(t *testing.T) {
	db := newTestDB(t)
	notif := NewNotificationService(db, nil)
	erin := seedUser(t, db, "Erin Engineer", models.RoleEngineer)
	owen := seedUser(t, db, "Owen Ops", models.RoleOperations)
	ctx := context.Background()

	require.NoError(t, notif.NotifyActiveUsers(ctx, NotificationTemplate{Type: "info", Message: "one"}))
	require.NoError(t, notif.NotifyActiveUsers(ctx, NotificationTemplate{Type: "info", Message: "two"}))

	updated, err := notif.MarkAllRead(ctx, erin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	count, err := notif.UnreadCount(ctx, erin.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = notif.UnreadCount(ctx, owen.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	list, err := notif.List(ctx, owen.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestNotifyRolesTargetsActiveHolders(t *testing.T) {
	db := newTestDB(t)
	notif := NewNotificationService(db, nil)
	admin := seedUser(t, db, "Alice Admin", models.RoleAdmin)
	approver := seedUser(t, db, "Avery Approver", models.RoleApprover)
	erin := seedUser(t, db, "Erin Engineer", models.RoleEngineer)
	ctx := context.Background()

	require.NoError(t, notif.NotifyRoles(ctx, []models.Role{models.RoleAdmin, models.RoleApprover}, NotificationTemplate{
		Type: "eco_submitted", Message: "review", Link: "/ecos/ECO-1",
	}))

	for _, id := range []string{admin.ID, approver.ID} {
		count, err := notif.UnreadCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	}
	count, err := notif.UnreadCount(ctx, erin.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateNotificationForUnknownUser(t *testing.T) {
	db := newTestDB(t)
	notif := NewNotificationService(db, nil)

	_, err := notif.Create(context.Background(), &CreateNotificationRequest{
		UserID: "6f1c7a8e-3f5e-4a63-9d0e-2a7b1c9d4e10", Message: "hello", Type: "info",
	})
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	_, err = notif.Create(context.Background(), &CreateNotificationRequest{UserID: "not-a-uuid", Message: "hello", Type: "info"})
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}
