package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"livedocs-server/core"

	"github.com/sirupsen/logrus"
)

// memStore keeps rooms and inbox notifications in process memory. It is the
// default backend and the one the tests run against.
type memStore struct {
	mu            sync.RWMutex
	rooms         map[string]*core.Room
	notifications map[string][]*core.InboxNotification
}

// NewStore creates a new in-memory collaboration backend.
func NewStore() *memStore {
	return &memStore{
		rooms:         make(map[string]*core.Room),
		notifications: make(map[string][]*core.InboxNotification),
	}
}

func (s *memStore) CreateRoom(ctx context.Context, id string, params core.CreateRoomParams) (*core.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithField("room_id", id)
	if _, ok := s.rooms[id]; ok {
		log.Warn("Room already exists")
		return nil, fmt.Errorf("room %s already exists: %w", id, core.ErrBackend)
	}

	now := time.Now()
	room := &core.Room{
		ID:              id,
		Metadata:        copyMetadata(params.Metadata),
		UsersAccesses:   copyAccesses(params.UsersAccesses),
		DefaultAccesses: append([]core.AccessType{}, params.DefaultAccesses...),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.rooms[id] = room
	log.Info("Room created successfully")
	return cloneRoom(room), nil
}

func (s *memStore) GetRoom(ctx context.Context, id string) (*core.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		logrus.WithField("room_id", id).Warn("Room with specified ID not found")
		return nil, fmt.Errorf("room %s: %w", id, core.ErrNotFound)
	}
	return cloneRoom(room), nil
}

func (s *memStore) UpdateRoom(ctx context.Context, id string, params core.UpdateRoomParams) (*core.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		logrus.WithField("room_id", id).Warn("Room with specified ID not found")
		return nil, fmt.Errorf("room %s: %w", id, core.ErrNotFound)
	}

	for key, value := range params.Metadata {
		room.Metadata[key] = value
	}
	for email, accesses := range params.UsersAccesses {
		if accesses == nil {
			delete(room.UsersAccesses, email)
			continue
		}
		room.UsersAccesses[email] = append([]core.AccessType{}, accesses...)
	}
	room.UpdatedAt = time.Now()

	logrus.WithField("room_id", id).Info("Room updated successfully")
	return cloneRoom(room), nil
}

func (s *memStore) ListRooms(ctx context.Context, userID string) ([]*core.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*core.Room, 0)
	for _, room := range s.rooms {
		if _, ok := room.UsersAccesses[userID]; ok {
			rooms = append(rooms, cloneRoom(room))
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})

	logrus.WithField("user_id", userID).Infof("Listed %d rooms", len(rooms))
	return rooms, nil
}

func (s *memStore) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[id]; !ok {
		logrus.WithField("room_id", id).Warn("Room not found for deletion")
		return fmt.Errorf("room %s: %w", id, core.ErrNotFound)
	}
	delete(s.rooms, id)
	logrus.WithField("room_id", id).Info("Room deleted successfully")
	return nil
}

func (s *memStore) TriggerInboxNotification(ctx context.Context, notification core.InboxNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if notification.UserID == "" {
		return fmt.Errorf("notification userId cannot be empty")
	}
	notification.SentAt = time.Now()
	s.notifications[notification.UserID] = append(s.notifications[notification.UserID], &notification)

	logrus.WithFields(logrus.Fields{
		"user_id": notification.UserID,
		"kind":    notification.Kind,
		"room_id": notification.RoomID,
	}).Info("Inbox notification stored")
	return nil
}

func (s *memStore) ListInboxNotifications(ctx context.Context, userID string) ([]*core.InboxNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.notifications[userID]
	notifications := make([]*core.InboxNotification, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		n := *stored[i]
		notifications = append(notifications, &n)
	}
	return notifications, nil
}

func copyMetadata(metadata map[string]string) map[string]string {
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

func copyAccesses(accesses map[string][]core.AccessType) map[string][]core.AccessType {
	out := make(map[string][]core.AccessType, len(accesses))
	for email, tokens := range accesses {
		out[email] = append([]core.AccessType{}, tokens...)
	}
	return out
}

// cloneRoom hands callers their own copy so later updates cannot alias into
// a room they already received.
func cloneRoom(room *core.Room) *core.Room {
	return &core.Room{
		ID:              room.ID,
		Metadata:        copyMetadata(room.Metadata),
		UsersAccesses:   copyAccesses(room.UsersAccesses),
		DefaultAccesses: append([]core.AccessType{}, room.DefaultAccesses...),
		CreatedAt:       room.CreatedAt,
		UpdatedAt:       room.UpdatedAt,
	}
}
