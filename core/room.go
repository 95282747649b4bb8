package core

import (
	"context"
	"time"
)

// AccessType is a single permission token as understood by the collaboration
// backend, e.g. "room:write".
type AccessType string

const (
	AccessWrite         AccessType = "room:write"
	AccessRead          AccessType = "room:read"
	AccessPresenceWrite AccessType = "room:presence:write"
)

// UserType is the semantic role exposed to the UI. It is mapped onto concrete
// permission tokens before anything is sent to the backend.
type UserType string

const (
	UserTypeCreator UserType = "creator"
	UserTypeEditor  UserType = "editor"
	UserTypeViewer  UserType = "viewer"
)

// AccessTypesFor maps a semantic role onto the backend's permission tokens.
// Unknown roles degrade to viewer access.
func AccessTypesFor(userType UserType) []AccessType {
	switch userType {
	case UserTypeCreator, UserTypeEditor:
		return []AccessType{AccessWrite}
	default:
		return []AccessType{AccessRead, AccessPresenceWrite}
	}
}

type (
	// Room is the collaboration backend's unit of a shared document. The
	// metadata map carries "creatorId", "email" and "title"; UsersAccesses
	// maps a collaborator's email onto their permission tokens.
	Room struct {
		ID              string                  `json:"id"`
		Metadata        map[string]string       `json:"metadata"`
		UsersAccesses   map[string][]AccessType `json:"usersAccesses"`
		DefaultAccesses []AccessType            `json:"defaultAccesses"`
		CreatedAt       time.Time               `json:"createdAt"`
		UpdatedAt       time.Time               `json:"updatedAt"`
	}

	// CreateRoomParams is the full initial state of a room.
	CreateRoomParams struct {
		Metadata        map[string]string       `json:"metadata"`
		UsersAccesses   map[string][]AccessType `json:"usersAccesses"`
		DefaultAccesses []AccessType            `json:"defaultAccesses"`
	}

	// UpdateRoomParams is a partial update. A nil map leaves that aspect of
	// the room untouched. Inside UsersAccesses a nil token list revokes the
	// entry for that email, mirroring the hosted API's null semantics.
	UpdateRoomParams struct {
		Metadata      map[string]string       `json:"metadata,omitempty"`
		UsersAccesses map[string][]AccessType `json:"usersAccesses,omitempty"`
	}

	// InboxNotification is an out-of-band message delivered to a user via the
	// collaboration backend, used for access-grant alerts.
	InboxNotification struct {
		UserID       string            `json:"userId"`
		Kind         string            `json:"kind"`
		SubjectID    string            `json:"subjectId"`
		RoomID       string            `json:"roomId"`
		ActivityData map[string]string `json:"activityData"`
		SentAt       time.Time         `json:"sentAt,omitempty"`
	}

	// CollabService is the room-management contract of the collaboration
	// backend. The hosted client and the self-host store backends all
	// implement it.
	CollabService interface {
		CreateRoom(ctx context.Context, id string, params CreateRoomParams) (*Room, error)

		GetRoom(ctx context.Context, id string) (*Room, error)

		// UpdateRoom applies a partial update and returns the room as it
		// stands afterwards.
		UpdateRoom(ctx context.Context, id string, params UpdateRoomParams) (*Room, error)

		// ListRooms returns every room in which userID appears in the access
		// map, newest first.
		ListRooms(ctx context.Context, userID string) ([]*Room, error)

		DeleteRoom(ctx context.Context, id string) error

		TriggerInboxNotification(ctx context.Context, notification InboxNotification) error

		// ListInboxNotifications returns the notifications delivered to a
		// user, newest first. The hosted backend surfaces these through its
		// own inbox UI; self-host backends serve them over the API.
		ListInboxNotifications(ctx context.Context, userID string) ([]*InboxNotification, error)
	}
)

// NotificationKindDocumentAccess tags an access-grant notification.
const NotificationKindDocumentAccess = "$documentAccess"

// MetaCreatorID, MetaEmail and MetaTitle are the metadata keys written at
// room creation.
const (
	MetaCreatorID = "creatorId"
	MetaEmail     = "email"
	MetaTitle     = "title"
)
