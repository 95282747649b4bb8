// Package documents is the room action layer: each method wraps one
// collaboration-backend call, applies the single access check it owns, and
// invalidates the affected route on success.
package documents

import (
	"context"
	"errors"
	"fmt"

	"livedocs-server/core"
	"livedocs-server/routecache"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	rootPath     = "/"
	documentPath = "/documents/"

	untitled = "Untitled"
)

// Service exposes the document actions. All remote work is delegated to the
// collaboration backend; the service owns input shaping, error translation
// and cache invalidation.
type Service struct {
	collab core.CollabService
	cache  routecache.Cache
	log    *logrus.Entry
}

// UpdatedBy identifies who granted access, for the notification payload.
type UpdatedBy struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// ShareParams are the inputs of UpdateDocumentAccess.
type ShareParams struct {
	RoomID    string        `json:"roomId"`
	Email     string        `json:"email"`
	UserType  core.UserType `json:"userType"`
	UpdatedBy UpdatedBy     `json:"updatedBy"`
}

func NewService(collab core.CollabService, cache routecache.Cache) *Service {
	return &Service{
		collab: collab,
		cache:  cache,
		log:    logrus.WithField("component", "documents"),
	}
}

// CreateDocument provisions a room for the creator: fresh collision-resistant
// ID, "Untitled" title, and write access for the creator's email.
func (s *Service) CreateDocument(ctx context.Context, userID, email string) (*core.Room, error) {
	roomID := ulid.Make().String()

	room, err := s.collab.CreateRoom(ctx, roomID, core.CreateRoomParams{
		Metadata: map[string]string{
			core.MetaCreatorID: userID,
			core.MetaEmail:     email,
			core.MetaTitle:     untitled,
		},
		UsersAccesses: map[string][]core.AccessType{
			email: {core.AccessWrite},
		},
		DefaultAccesses: []core.AccessType{},
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).WithError(err).Error("Error creating room")
		return nil, fmt.Errorf("failed to create room: %w", kind(err))
	}

	s.cache.Invalidate(ctx, rootPath)
	return room, nil
}

// GetDocument fetches a room and verifies the requesting principal holds an
// entry in its access map.
func (s *Service) GetDocument(ctx context.Context, roomID, userID string) (*core.Room, error) {
	room, err := s.collab.GetRoom(ctx, roomID)
	if err != nil {
		s.log.WithField("room_id", roomID).WithError(err).Error("Error fetching room")
		return nil, fmt.Errorf("failed to fetch room: %w", kind(err))
	}

	if _, ok := room.UsersAccesses[userID]; !ok {
		s.log.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).Warn("User has no access to room")
		return nil, fmt.Errorf("failed to fetch room: %w", core.ErrAccessDenied)
	}
	return room, nil
}

// UpdateDocument sets the room title. Authorization is assumed to have been
// established by the caller's context, as in the original flow.
func (s *Service) UpdateDocument(ctx context.Context, roomID, title string) (*core.Room, error) {
	room, err := s.collab.UpdateRoom(ctx, roomID, core.UpdateRoomParams{
		Metadata: map[string]string{core.MetaTitle: title},
	})
	if err != nil {
		s.log.WithField("room_id", roomID).WithError(err).Error("Error updating room")
		return nil, fmt.Errorf("failed to update room: %w", kind(err))
	}

	s.cache.Invalidate(ctx, documentPath+roomID)
	return room, nil
}

// GetAllDocuments lists the rooms in which the given email is a member. No
// further access filtering is applied.
func (s *Service) GetAllDocuments(ctx context.Context, email string) ([]*core.Room, error) {
	rooms, err := s.collab.ListRooms(ctx, email)
	if err != nil {
		s.log.WithField("email", email).WithError(err).Error("Error fetching rooms")
		return nil, fmt.Errorf("failed to fetch rooms: %w", kind(err))
	}
	return rooms, nil
}

// UpdateDocumentAccess grants a semantic role to one collaborator and tells
// them about it through an inbox notification. The notification send is
// best-effort: the access update's outcome is reported truthfully even when
// the notification fails.
func (s *Service) UpdateDocumentAccess(ctx context.Context, params ShareParams) (*core.Room, error) {
	accesses := core.AccessTypesFor(params.UserType)

	room, err := s.collab.UpdateRoom(ctx, params.RoomID, core.UpdateRoomParams{
		UsersAccesses: map[string][]core.AccessType{
			params.Email: accesses,
		},
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"room_id": params.RoomID, "email": params.Email}).WithError(err).Error("Error updating room access")
		return nil, fmt.Errorf("failed to update room access: %w", kind(err))
	}

	notification := core.InboxNotification{
		UserID:    params.Email,
		Kind:      core.NotificationKindDocumentAccess,
		SubjectID: uuid.NewString(),
		RoomID:    params.RoomID,
		ActivityData: map[string]string{
			"userType":  string(params.UserType),
			"title":     fmt.Sprintf("You have been granted %s access to the document by %s", params.UserType, params.UpdatedBy.Name),
			"email":     params.UpdatedBy.Email,
			"avatar":    params.UpdatedBy.Avatar,
			"updatedBy": params.UpdatedBy.Name,
		},
	}
	if err := s.collab.TriggerInboxNotification(ctx, notification); err != nil {
		// Non-fatal: the access change already happened and is reported as
		// such.
		s.log.WithFields(logrus.Fields{"room_id": params.RoomID, "email": params.Email}).WithError(err).Warn("Failed to send access notification")
	}

	s.cache.Invalidate(ctx, documentPath+params.RoomID)
	return room, nil
}

// RemoveCollaborator revokes one collaborator's access entry. The creator
// cannot remove themselves.
func (s *Service) RemoveCollaborator(ctx context.Context, roomID, email string) (*core.Room, error) {
	room, err := s.collab.GetRoom(ctx, roomID)
	if err != nil {
		s.log.WithField("room_id", roomID).WithError(err).Error("Error removing collaborator")
		return nil, fmt.Errorf("failed to remove collaborator: %w", kind(err))
	}

	if room.Metadata[core.MetaEmail] == email {
		s.log.WithFields(logrus.Fields{"room_id": roomID, "email": email}).Warn("Creator attempted self-removal")
		return nil, fmt.Errorf("failed to remove collaborator: %w", core.ErrSelfRemoval)
	}

	updated, err := s.collab.UpdateRoom(ctx, roomID, core.UpdateRoomParams{
		UsersAccesses: map[string][]core.AccessType{
			email: nil,
		},
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"room_id": roomID, "email": email}).WithError(err).Error("Error removing collaborator")
		return nil, fmt.Errorf("failed to remove collaborator: %w", kind(err))
	}

	s.cache.Invalidate(ctx, documentPath+roomID)
	return updated, nil
}

// DeleteDocument destroys the room. Unlike the other actions' historical
// behavior of swallowing delete failures, the error is surfaced so the HTTP
// layer can skip the redirect and report it.
func (s *Service) DeleteDocument(ctx context.Context, roomID string) error {
	if err := s.collab.DeleteRoom(ctx, roomID); err != nil {
		s.log.WithField("room_id", roomID).WithError(err).Error("Error deleting room")
		return fmt.Errorf("failed to delete room: %w", kind(err))
	}

	s.cache.Invalidate(ctx, rootPath)
	return nil
}

// ListNotifications returns the caller's inbox (self-host backends only; the
// hosted service delivers its own inbox).
func (s *Service) ListNotifications(ctx context.Context, email string) ([]*core.InboxNotification, error) {
	notifications, err := s.collab.ListInboxNotifications(ctx, email)
	if err != nil {
		s.log.WithField("email", email).WithError(err).Error("Error fetching notifications")
		return nil, fmt.Errorf("failed to fetch notifications: %w", kind(err))
	}
	return notifications, nil
}

// kind reduces a backend error to one of the core error kinds so callers can
// branch with errors.Is. Unrecognized failures collapse to ErrBackend.
func kind(err error) error {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return core.ErrNotFound
	case errors.Is(err, core.ErrAccessDenied):
		return core.ErrAccessDenied
	case errors.Is(err, core.ErrSelfRemoval):
		return core.ErrSelfRemoval
	default:
		return core.ErrBackend
	}
}
