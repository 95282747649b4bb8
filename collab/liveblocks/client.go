package liveblocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"livedocs-server/core"

	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api.liveblocks.io"

// Client talks to the hosted room-management API. It only covers the
// endpoints the action layer needs.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the hosted collaboration service. An empty
// baseURL selects the production endpoint.
func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type createRoomRequest struct {
	ID string `json:"id"`
	core.CreateRoomParams
}

type listRoomsResponse struct {
	Data       []*core.Room `json:"data"`
	NextCursor *string      `json:"nextCursor"`
}

func (c *Client) CreateRoom(ctx context.Context, id string, params core.CreateRoomParams) (*core.Room, error) {
	var room core.Room
	err := c.do(ctx, http.MethodPost, "/v2/rooms", createRoomRequest{ID: id, CreateRoomParams: params}, &room)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) GetRoom(ctx context.Context, id string) (*core.Room, error) {
	var room core.Room
	err := c.do(ctx, http.MethodGet, "/v2/rooms/"+url.PathEscape(id), nil, &room)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) UpdateRoom(ctx context.Context, id string, params core.UpdateRoomParams) (*core.Room, error) {
	var room core.Room
	err := c.do(ctx, http.MethodPost, "/v2/rooms/"+url.PathEscape(id), params, &room)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) ListRooms(ctx context.Context, userID string) ([]*core.Room, error) {
	var resp listRoomsResponse
	path := "/v2/rooms?userId=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) DeleteRoom(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v2/rooms/"+url.PathEscape(id), nil, nil)
}

func (c *Client) TriggerInboxNotification(ctx context.Context, notification core.InboxNotification) error {
	return c.do(ctx, http.MethodPost, "/v2/inbox-notifications/trigger", notification, nil)
}

// ListInboxNotifications is not proxied: the hosted service delivers inbox
// notifications straight to its client SDK.
func (c *Client) ListInboxNotifications(ctx context.Context, userID string) ([]*core.InboxNotification, error) {
	return []*core.InboxNotification{}, nil
}

// do performs one authenticated JSON round-trip against the hosted API and
// decodes the response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).WithError(err).Error("Hosted API request failed")
		return fmt.Errorf("%s %s: %v: %w", method, path, err, core.ErrBackend)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, core.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logrus.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
			"body":   string(payload),
		}).Error("Hosted API returned an error")
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, core.ErrBackend)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %v: %w", method, path, err, core.ErrBackend)
	}
	return nil
}
