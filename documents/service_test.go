package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"livedocs-server/collab/memory"
	"livedocs-server/core"
	"livedocs-server/routecache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCollab wraps the in-memory backend to count update calls, capture
// notifications and inject notification failures.
type recordingCollab struct {
	core.CollabService
	updateCalls   int
	notifications []core.InboxNotification
	notifyErr     error
}

func (r *recordingCollab) UpdateRoom(ctx context.Context, id string, params core.UpdateRoomParams) (*core.Room, error) {
	r.updateCalls++
	return r.CollabService.UpdateRoom(ctx, id, params)
}

func (r *recordingCollab) TriggerInboxNotification(ctx context.Context, notification core.InboxNotification) error {
	if r.notifyErr != nil {
		return r.notifyErr
	}
	r.notifications = append(r.notifications, notification)
	return r.CollabService.TriggerInboxNotification(ctx, notification)
}

func newTestService(t *testing.T) (*Service, *recordingCollab, routecache.Cache) {
	t.Helper()
	backend := &recordingCollab{CollabService: memory.NewStore()}
	cache := routecache.NewMemoryCache(time.Minute)
	return NewService(backend, cache), backend, cache
}

func TestCreateDocument(t *testing.T) {
	service, _, _ := newTestService(t)

	room, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, room)

	assert.NotEmpty(t, room.ID)
	assert.Equal(t, "Untitled", room.Metadata[core.MetaTitle])
	assert.Equal(t, "u1", room.Metadata[core.MetaCreatorID])
	assert.Equal(t, "a@x.com", room.Metadata[core.MetaEmail])
	assert.Equal(t, []core.AccessType{core.AccessWrite}, room.UsersAccesses["a@x.com"])
	assert.Empty(t, room.DefaultAccesses)
}

func TestCreateDocumentInvalidatesRootListing(t *testing.T) {
	service, _, cache := newTestService(t)
	cache.Set(context.Background(), "/", "a@x.com", []byte(`[]`))

	_, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)

	_, hit := cache.Get(context.Background(), "/", "a@x.com")
	assert.False(t, hit, "root listing should be invalidated after creation")
}

func TestCreateDocumentIDsAreUnique(t *testing.T) {
	service, _, _ := newTestService(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		room, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
		require.NoError(t, err)
		assert.False(t, seen[room.ID], "room ID %s reused", room.ID)
		seen[room.ID] = true
	}
}

func TestGetDocumentDeniesNonMember(t *testing.T) {
	service, _, _ := newTestService(t)
	created, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)

	room, err := service.GetDocument(context.Background(), created.ID, "b@x.com")
	assert.Nil(t, room)
	assert.ErrorIs(t, err, core.ErrAccessDenied)
}

func TestGetDocumentMember(t *testing.T) {
	service, _, _ := newTestService(t)
	created, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)

	room, err := service.GetDocument(context.Background(), created.ID, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, room.ID)
}

func TestGetDocumentNotFound(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.GetDocument(context.Background(), "missing", "a@x.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateDocumentIsIdempotent(t *testing.T) {
	service, _, _ := newTestService(t)
	created, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)

	first, err := service.UpdateDocument(context.Background(), created.ID, "Design notes")
	require.NoError(t, err)
	second, err := service.UpdateDocument(context.Background(), created.ID, "Design notes")
	require.NoError(t, err)

	assert.Equal(t, "Design notes", first.Metadata[core.MetaTitle])
	assert.Equal(t, "Design notes", second.Metadata[core.MetaTitle])
}

func TestUpdateDocumentKeepsOtherMetadata(t *testing.T) {
	service, _, _ := newTestService(t)
	created, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)

	room, err := service.UpdateDocument(context.Background(), created.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "u1", room.Metadata[core.MetaCreatorID])
	assert.Equal(t, "a@x.com", room.Metadata[core.MetaEmail])
}

func TestGetAllDocumentsFiltersByMembership(t *testing.T) {
	service, _, _ := newTestService(t)
	_, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)
	_, err = service.CreateDocument(context.Background(), "u2", "b@x.com")
	require.NoError(t, err)

	rooms, err := service.GetAllDocuments(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "a@x.com", rooms[0].Metadata[core.MetaEmail])
}

func TestUpdateDocumentAccessViewer(t *testing.T) {
	service, backend, _ := newTestService(t)
	created, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)

	room, err := service.UpdateDocumentAccess(context.Background(), ShareParams{
		RoomID:   created.ID,
		Email:    "b@x.com",
		UserType: core.UserTypeViewer,
		UpdatedBy: UpdatedBy{
			Name:   "Alice",
			Email:  "a@x.com",
			Avatar: "https://example.com/a.png",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, core.AccessTypesFor(core.UserTypeViewer), room.UsersAccesses["b@x.com"])
	// The creator's entry must be untouched.
	assert.Equal(t, []core.AccessType{core.AccessWrite}, room.UsersAccesses["a@x.com"])

	require.Len(t, backend.notifications, 1)
	notification := backend.notifications[0]
	assert.Equal(t, core.NotificationKindDocumentAccess, notification.Kind)
	assert.Equal(t, "b@x.com", notification.UserID)
	assert.Equal(t, created.ID, notification.RoomID)
	assert.NotEmpty(t, notification.SubjectID)
	assert.Equal(t, "viewer", notification.ActivityData["userType"])
	assert.Equal(t, "Alice", notification.ActivityData["updatedBy"])
}

func TestUpdateDocumentAccessEditor(t *testing.T) {
	service, _, _ := newTestService(t)
	created, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)

	room, err := service.UpdateDocumentAccess(context.Background(), ShareParams{
		RoomID:   created.ID,
		Email:    "b@x.com",
		UserType: core.UserTypeEditor,
	})
	require.NoError(t, err)
	assert.Equal(t, []core.AccessType{core.AccessWrite}, room.UsersAccesses["b@x.com"])
}

func TestUpdateDocumentAccessNotificationFailureIsNonFatal(t *testing.T) {
	service, backend, _ := newTestService(t)
	created, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)

	backend.notifyErr = errors.New("inbox unavailable")
	room, err := service.UpdateDocumentAccess(context.Background(), ShareParams{
		RoomID:   created.ID,
		Email:    "b@x.com",
		UserType: core.UserTypeViewer,
	})
	// The access change succeeded; a broken inbox must not mask that.
	require.NoError(t, err)
	assert.Contains(t, room.UsersAccesses, "b@x.com")
}

func TestRemoveCollaborator(t *testing.T) {
	service, _, _ := newTestService(t)
	created, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)
	_, err = service.UpdateDocumentAccess(context.Background(), ShareParams{
		RoomID:   created.ID,
		Email:    "b@x.com",
		UserType: core.UserTypeViewer,
	})
	require.NoError(t, err)

	room, err := service.RemoveCollaborator(context.Background(), created.ID, "b@x.com")
	require.NoError(t, err)
	assert.NotContains(t, room.UsersAccesses, "b@x.com")
	assert.Contains(t, room.UsersAccesses, "a@x.com")
}

func TestRemoveCollaboratorRejectsCreator(t *testing.T) {
	service, backend, _ := newTestService(t)
	created, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)
	updateCallsBefore := backend.updateCalls

	room, err := service.RemoveCollaborator(context.Background(), created.ID, "a@x.com")
	assert.Nil(t, room)
	assert.ErrorIs(t, err, core.ErrSelfRemoval)
	// The rejection happens before any update call reaches the backend.
	assert.Equal(t, updateCallsBefore, backend.updateCalls)

	unchanged, err := service.GetDocument(context.Background(), created.ID, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, []core.AccessType{core.AccessWrite}, unchanged.UsersAccesses["a@x.com"])
}

func TestDeleteDocument(t *testing.T) {
	service, _, cache := newTestService(t)
	created, err := service.CreateDocument(context.Background(), "u1", "a@x.com")
	require.NoError(t, err)
	cache.Set(context.Background(), "/", "a@x.com", []byte(`[]`))

	require.NoError(t, service.DeleteDocument(context.Background(), created.ID))

	_, err = service.GetDocument(context.Background(), created.ID, "a@x.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, hit := cache.Get(context.Background(), "/", "a@x.com")
	assert.False(t, hit)
}

// The original frontend swallowed delete failures entirely; the error is now
// surfaced like every sibling action so callers can react.
func TestDeleteDocumentMissingRoomSurfacesError(t *testing.T) {
	service, _, _ := newTestService(t)

	err := service.DeleteDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
