package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"livedocs-server/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-backed collaboration backend.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	roomTableStmt := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		metadata TEXT NOT NULL,
		users_accesses TEXT NOT NULL,
		default_accesses TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`
	if _, err = db.Exec(roomTableStmt); err != nil {
		log.Fatalf("failed to create rooms table: %v", err)
	}

	notificationTableStmt := `
	CREATE TABLE IF NOT EXISTS inbox_notifications (
		subject_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		room_id TEXT,
		activity_data TEXT NOT NULL,
		sent_at DATETIME
	);`
	if _, err = db.Exec(notificationTableStmt); err != nil {
		log.Fatalf("failed to create inbox_notifications table: %v", err)
	}

	return &sqliteStore{db}
}

func (s *sqliteStore) CreateRoom(ctx context.Context, id string, params core.CreateRoomParams) (*core.Room, error) {
	log := logrus.WithField("room_id", id)

	now := time.Now()
	room := &core.Room{
		ID:              id,
		Metadata:        params.Metadata,
		UsersAccesses:   params.UsersAccesses,
		DefaultAccesses: params.DefaultAccesses,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	metadata, accesses, defaults, err := encodeRoom(room)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO rooms (id, metadata, users_accesses, default_accesses, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, metadata, accesses, defaults, now, now)
	if err != nil {
		log.WithError(err).Error("Failed to create room")
		return nil, fmt.Errorf("create room %s: %w", id, core.ErrBackend)
	}
	log.Info("Room created successfully")
	return room, nil
}

func (s *sqliteStore) GetRoom(ctx context.Context, id string) (*core.Room, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, metadata, users_accesses, default_accesses, created_at, updated_at FROM rooms WHERE id = ?", id)
	room, err := scanRoom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			logrus.WithField("room_id", id).Warn("Room with specified ID not found")
			return nil, fmt.Errorf("room %s: %w", id, core.ErrNotFound)
		}
		logrus.WithField("room_id", id).WithError(err).Error("Failed to retrieve room")
		return nil, err
	}
	return room, nil
}

func (s *sqliteStore) UpdateRoom(ctx context.Context, id string, params core.UpdateRoomParams) (*core.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		"SELECT id, metadata, users_accesses, default_accesses, created_at, updated_at FROM rooms WHERE id = ?", id)
	room, err := scanRoom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("room %s: %w", id, core.ErrNotFound)
		}
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

	metadata, accesses, defaults, err := encodeRoom(room)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE rooms SET metadata = ?, users_accesses = ?, default_accesses = ?, updated_at = ? WHERE id = ?",
		metadata, accesses, defaults, room.UpdatedAt, id)
	if err != nil {
		logrus.WithField("room_id", id).WithError(err).Error("Failed to update room")
		return nil, fmt.Errorf("update room %s: %w", id, core.ErrBackend)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	logrus.WithField("room_id", id).Info("Room updated successfully")
	return room, nil
}

func (s *sqliteStore) ListRooms(ctx context.Context, userID string) ([]*core.Room, error) {
	// Membership lives inside the JSON access map, so filtering happens here
	// rather than in SQL.
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, metadata, users_accesses, default_accesses, created_at, updated_at FROM rooms ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]*core.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		if _, ok := room.UsersAccesses[userID]; ok {
			rooms = append(rooms, room)
		}
	}
	return rooms, rows.Err()
}

func (s *sqliteStore) DeleteRoom(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		logrus.WithField("room_id", id).WithError(err).Error("Failed to delete room")
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("room %s: %w", id, core.ErrNotFound)
	}
	logrus.WithField("room_id", id).Info("Room deleted successfully")
	return nil
}

func (s *sqliteStore) TriggerInboxNotification(ctx context.Context, notification core.InboxNotification) error {
	activityData, err := json.Marshal(notification.ActivityData)
	if err != nil {
		return err
	}
	notification.SentAt = time.Now()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO inbox_notifications (subject_id, user_id, kind, room_id, activity_data, sent_at) VALUES (?, ?, ?, ?, ?, ?)",
		notification.SubjectID, notification.UserID, notification.Kind, notification.RoomID, string(activityData), notification.SentAt)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": notification.UserID,
			"room_id": notification.RoomID,
		}).WithError(err).Error("Failed to store inbox notification")
		return fmt.Errorf("store notification: %w", core.ErrBackend)
	}
	return nil
}

func (s *sqliteStore) ListInboxNotifications(ctx context.Context, userID string) ([]*core.InboxNotification, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT subject_id, user_id, kind, room_id, activity_data, sent_at FROM inbox_notifications WHERE user_id = ? ORDER BY sent_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*core.InboxNotification, 0)
	for rows.Next() {
		var n core.InboxNotification
		var activityData string
		if err := rows.Scan(&n.SubjectID, &n.UserID, &n.Kind, &n.RoomID, &activityData, &n.SentAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(activityData), &n.ActivityData); err != nil {
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*core.Room, error) {
	var room core.Room
	var metadata, accesses, defaults string
	if err := row.Scan(&room.ID, &metadata, &accesses, &defaults, &room.CreatedAt, &room.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadata), &room.Metadata); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(accesses), &room.UsersAccesses); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(defaults), &room.DefaultAccesses); err != nil {
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

func encodeRoom(room *core.Room) (metadata, accesses, defaults string, err error) {
	m, err := json.Marshal(room.Metadata)
	if err != nil {
		return "", "", "", err
	}
	a, err := json.Marshal(room.UsersAccesses)
	if err != nil {
		return "", "", "", err
	}
	d, err := json.Marshal(room.DefaultAccesses)
	if err != nil {
		return "", "", "", err
	}
	return string(m), string(a), string(d), nil
}
