package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"livedocs-server/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// fsStore keeps each room as a JSON file under <basePath>/rooms and each
// inbox notification under <basePath>/notifications/<user>.
type fsStore struct {
	basePath string
	mu       sync.Mutex
}

// NewStore creates a new filesystem-backed collaboration backend.
func NewStore(basePath string) *fsStore {
	for _, dir := range []string{roomsDir(basePath), notificationsDir(basePath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create storage directory: %v", err)
		}
	}
	return &fsStore{basePath: basePath}
}

func roomsDir(basePath string) string {
	return filepath.Join(basePath, "rooms")
}

func notificationsDir(basePath string) string {
	return filepath.Join(basePath, "notifications")
}

func (s *fsStore) roomPath(id string) string {
	return filepath.Join(roomsDir(s.basePath), id+".json")
}

func (s *fsStore) CreateRoom(ctx context.Context, id string, params core.CreateRoomParams) (*core.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"room_id": id, "path": s.roomPath(id)})
	if _, err := os.Stat(s.roomPath(id)); err == nil {
		log.Warn("Room already exists")
		return nil, fmt.Errorf("room %s already exists: %w", id, core.ErrBackend)
	}

	now := time.Now()
	room := &core.Room{
		ID:              id,
		Metadata:        params.Metadata,
		UsersAccesses:   params.UsersAccesses,
		DefaultAccesses: params.DefaultAccesses,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.writeRoom(room); err != nil {
		log.WithError(err).Error("Failed to create room")
		return nil, err
	}
	log.Info("Room created successfully")
	return room, nil
}

func (s *fsStore) GetRoom(ctx context.Context, id string) (*core.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRoom(id)
}

func (s *fsStore) UpdateRoom(ctx context.Context, id string, params core.UpdateRoomParams) (*core.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.readRoom(id)
	if err != nil {
		return nil, err
	}
	for key, value := range params.Metadata {
		room.Metadata[key] = value
	}
	for email, tokens := range params.UsersAccesses {
		if tokens == nil {
			delete(room.UsersAccesses, email)
			continue
		}
		room.UsersAccesses[email] = tokens
	}
	room.UpdatedAt = time.Now()

	if err := s.writeRoom(room); err != nil {
		logrus.WithField("room_id", id).WithError(err).Error("Failed to update room")
		return nil, err
	}
	logrus.WithField("room_id", id).Info("Room updated successfully")
	return room, nil
}

func (s *fsStore) ListRooms(ctx context.Context, userID string) ([]*core.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithField("user_id", userID)
	files, err := os.ReadDir(roomsDir(s.basePath))
	if err != nil {
		log.WithError(err).Error("Failed to read rooms directory")
		return nil, err
	}

	rooms := make([]*core.Room, 0)
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		room, err := s.readRoom(strings.TrimSuffix(file.Name(), ".json"))
		if err != nil {
			log.WithError(err).Warnf("Failed to read room file %s, skipping", file.Name())
			continue
		}
		if _, ok := room.UsersAccesses[userID]; ok {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})

	log.Infof("Listed %d rooms", len(rooms))
	return rooms, nil
}

func (s *fsStore) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"room_id": id, "path": s.roomPath(id)})
	if err := os.Remove(s.roomPath(id)); err != nil {
		if os.IsNotExist(err) {
			log.Warn("Room file not found for deletion")
			return fmt.Errorf("room %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to delete room file")
		return err
	}
	log.Info("Room deleted successfully")
	return nil
}

func (s *fsStore) TriggerInboxNotification(ctx context.Context, notification core.InboxNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userDir := filepath.Join(notificationsDir(s.basePath), notification.UserID)
	if err := os.MkdirAll(userDir, 0755); err != nil {
		return err
	}
	notification.SentAt = time.Now()

	// ULID filenames sort lexicographically by creation time.
	filePath := filepath.Join(userDir, ulid.Make().String()+".json")
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		logrus.WithField("user_id", notification.UserID).WithError(err).Error("Failed to write notification file")
		return err
	}
	return nil
}

func (s *fsStore) ListInboxNotifications(ctx context.Context, userID string) ([]*core.InboxNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userDir := filepath.Join(notificationsDir(s.basePath), userID)
	files, err := os.ReadDir(userDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*core.InboxNotification{}, nil
		}
		return nil, err
	}

	notifications := make([]*core.InboxNotification, 0, len(files))
	for i := len(files) - 1; i >= 0; i-- {
		file := files[i]
		if file.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(userDir, file.Name()))
		if err != nil {
			logrus.WithError(err).Warnf("Failed to read notification file %s, skipping", file.Name())
			continue
		}
		var n core.InboxNotification
		if err := json.Unmarshal(data, &n); err != nil {
			logrus.WithError(err).Warnf("Failed to unmarshal notification file %s, skipping", file.Name())
			continue
		}
		notifications = append(notifications, &n)
	}
	return notifications, nil
}

func (s *fsStore) readRoom(id string) (*core.Room, error) {
	filePath := s.roomPath(id)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("room_id", id).Warn("Room file not found")
			return nil, fmt.Errorf("room %s: %w", id, core.ErrNotFound)
		}
		logrus.WithField("room_id", id).WithError(err).Error("Failed to read room file")
		return nil, err
	}
	var room core.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	if room.Metadata == nil {
		room.Metadata = map[string]string{}
	}
	if room.UsersAccesses == nil {
		room.UsersAccesses = map[string][]core.AccessType{}
	}
	return &room, nil
}

func (s *fsStore) writeRoom(room *core.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return os.WriteFile(s.roomPath(room.ID), data, 0644)
}
