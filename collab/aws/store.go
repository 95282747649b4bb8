package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"sort"
	"time"

	"livedocs-server/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
)

// s3Store keeps rooms under rooms/<id>.json and inbox notifications under
// notifications/<user>/<ulid>.json.
type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates a new S3-backed collaboration backend.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
	}
}

func roomKey(id string) (string, error) {
	// Room IDs become object keys, so they must be plain names.
	if path.Base(id) != id || id == "" || id == "." || id == ".." {
		return "", fmt.Errorf("invalid room id: must be a plain name")
	}
	return path.Join("rooms", id+".json"), nil
}

func (s *s3Store) CreateRoom(ctx context.Context, id string, params core.CreateRoomParams) (*core.Room, error) {
	now := time.Now()
	room := &core.Room{
		ID:              id,
		Metadata:        params.Metadata,
		UsersAccesses:   params.UsersAccesses,
		DefaultAccesses: params.DefaultAccesses,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.putRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *s3Store) GetRoom(ctx context.Context, id string) (*core.Room, error) {
	key, err := roomKey(id)
	if err != nil {
		return nil, err
	}
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("room %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get room %s: %v", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read room data: %v", err)
	}

	var room core.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room data: %v", err)
	}
	if room.Metadata == nil {
		room.Metadata = map[string]string{}
	}
	if room.UsersAccesses == nil {
		room.UsersAccesses = map[string][]core.AccessType{}
	}
	return &room, nil
}

func (s *s3Store) UpdateRoom(ctx context.Context, id string, params core.UpdateRoomParams) (*core.Room, error) {
	room, err := s.GetRoom(ctx, id)
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

	if err := s.putRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *s3Store) ListRooms(ctx context.Context, userID string) ([]*core.Room, error) {
	output, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String("rooms/"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %v", err)
	}

	rooms := make([]*core.Room, 0, len(output.Contents))
	for _, object := range output.Contents {
		resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    object.Key,
		})
		if err != nil {
			log.Printf("warn: failed to get object %s: %v", *object.Key, err)
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Printf("warn: failed to read object body %s: %v", *object.Key, err)
			continue
		}

		var room core.Room
		if err := json.Unmarshal(data, &room); err != nil {
			log.Printf("warn: failed to unmarshal room %s: %v", *object.Key, err)
			continue
		}
		if _, ok := room.UsersAccesses[userID]; ok {
			rooms = append(rooms, &room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (s *s3Store) DeleteRoom(ctx context.Context, id string) error {
	key, err := roomKey(id)
	if err != nil {
		return err
	}
	// DeleteObject succeeds for missing keys, so check existence first to
	// keep not-found reporting consistent with the other backends.
	if _, err := s.GetRoom(ctx, id); err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete room %s: %v", id, err)
	}
	return nil
}

func (s *s3Store) TriggerInboxNotification(ctx context.Context, notification core.InboxNotification) error {
	notification.SentAt = time.Now()
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %v", err)
	}

	key := path.Join("notifications", notification.UserID, ulid.Make().String()+".json")
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to store notification for %s: %v", notification.UserID, err)
	}
	return nil
}

func (s *s3Store) ListInboxNotifications(ctx context.Context, userID string) ([]*core.InboxNotification, error) {
	prefix := path.Join("notifications", userID) + "/"
	output, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for %s: %v", userID, err)
	}

	notifications := make([]*core.InboxNotification, 0, len(output.Contents))
	// Object keys are ULIDs, so reverse lexical order is newest first.
	for i := len(output.Contents) - 1; i >= 0; i-- {
		object := output.Contents[i]
		resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    object.Key,
		})
		if err != nil {
			log.Printf("warn: failed to get object %s: %v", *object.Key, err)
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Printf("warn: failed to read object body %s: %v", *object.Key, err)
			continue
		}

		var n core.InboxNotification
		if err := json.Unmarshal(data, &n); err != nil {
			log.Printf("warn: failed to unmarshal notification %s: %v", *object.Key, err)
			continue
		}
		notifications = append(notifications, &n)
	}
	return notifications, nil
}

func (s *s3Store) putRoom(ctx context.Context, room *core.Room) error {
	key, err := roomKey(room.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %v", err)
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to save room %s: %v", room.ID, err)
	}
	return nil
}
