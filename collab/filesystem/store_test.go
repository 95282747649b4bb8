package filesystem

import (
	"context"
	"testing"

	"livedocs-server/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *fsStore {
	t.Helper()
	return NewStore(t.TempDir())
}

func createParams(email string) core.CreateRoomParams {
	return core.CreateRoomParams{
		Metadata: map[string]string{
			core.MetaCreatorID: "u1",
			core.MetaEmail:     email,
			core.MetaTitle:     "Untitled",
		},
		UsersAccesses: map[string][]core.AccessType{
			email: {core.AccessWrite},
		},
		DefaultAccesses: []core.AccessType{},
	}
}

func TestRoomRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateRoom(ctx, "r1", createParams("a@x.com"))
	require.NoError(t, err)

	got, err := store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Metadata, got.Metadata)
	assert.Equal(t, created.UsersAccesses, got.UsersAccesses)

	_, err = store.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateRoomPersists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.CreateRoom(ctx, "r1", createParams("a@x.com"))
	require.NoError(t, err)

	_, err = store.UpdateRoom(ctx, "r1", core.UpdateRoomParams{
		Metadata: map[string]string{core.MetaTitle: "Renamed"},
		UsersAccesses: map[string][]core.AccessType{
			"b@x.com": {core.AccessRead, core.AccessPresenceWrite},
		},
	})
	require.NoError(t, err)

	got, err := store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Metadata[core.MetaTitle])
	assert.Contains(t, got.UsersAccesses, "b@x.com")

	// Revoke persists too.
	_, err = store.UpdateRoom(ctx, "r1", core.UpdateRoomParams{
		UsersAccesses: map[string][]core.AccessType{"b@x.com": nil},
	})
	require.NoError(t, err)
	got, err = store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.NotContains(t, got.UsersAccesses, "b@x.com")
}

func TestListRoomsFiltersAndSorts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.CreateRoom(ctx, "r1", createParams("a@x.com"))
	require.NoError(t, err)
	_, err = store.CreateRoom(ctx, "r2", createParams("b@x.com"))
	require.NoError(t, err)

	rooms, err := store.ListRooms(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "r1", rooms[0].ID)
}

func TestDeleteRoom(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.CreateRoom(ctx, "r1", createParams("a@x.com"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteRoom(ctx, "r1"))
	assert.ErrorIs(t, store.DeleteRoom(ctx, "r1"), core.ErrNotFound)
}

func TestNotificationsPerUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.TriggerInboxNotification(ctx, core.InboxNotification{
		UserID:    "b@x.com",
		Kind:      core.NotificationKindDocumentAccess,
		SubjectID: "n1",
		RoomID:    "r1",
		ActivityData: map[string]string{
			"userType": "viewer",
		},
	}))

	notifications, err := store.ListInboxNotifications(ctx, "b@x.com")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "n1", notifications[0].SubjectID)
	assert.Equal(t, "viewer", notifications[0].ActivityData["userType"])

	notifications, err = store.ListInboxNotifications(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Empty(t, notifications)
}
