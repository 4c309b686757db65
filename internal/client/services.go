// Package client is the Go chat client for the booking platform's messaging
// service. It wraps the REST surface in small per-concern services and layers
// a Session on top that owns the room directory, the active transcript and
// the push subscription for the selected room.
package client

import (
	"context"
	"fmt"

	"github.com/bookitnow/chat-server/internal/types"
)

// HistoryService reads and extends a two-party conversation.
type HistoryService struct {
	rc *restClient
}

func (s *HistoryService) Fetch(ctx context.Context, self, peer int) ([]types.Message, error) {
	var messages []types.Message
	path := fmt.Sprintf("/api/chat/chat-with/%d/%d", self, peer)
	if err := s.rc.get(ctx, "history.fetch", path, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func (s *HistoryService) Append(ctx context.Context, self, peer int, body string) (types.Message, error) {
	var msg types.Message
	path := fmt.Sprintf("/api/chat/chat-with/%d/%d", self, peer)
	req := map[string]string{"message": body}
	if err := s.rc.post(ctx, "history.append", path, req, &msg); err != nil {
		return types.Message{}, err
	}

	return msg, nil
}

func (s *HistoryService) MarkRead(ctx context.Context, self, peer int) error {
	path := fmt.Sprintf("/api/chat/read/%d/%d", self, peer)
	return s.rc.post(ctx, "history.markread", path, nil, nil)
}

// PresenceService reports and queries best-effort online state.
type PresenceService struct {
	rc *restClient
}

func (s *PresenceService) MarkOnline(ctx context.Context, self, peer int) error {
	path := fmt.Sprintf("/api/chat/online/%d/%d", self, peer)
	return s.rc.post(ctx, "presence.online", path, nil, nil)
}

func (s *PresenceService) MarkOffline(ctx context.Context, self int) error {
	path := fmt.Sprintf("/api/chat/offline/%d", self)
	return s.rc.post(ctx, "presence.offline", path, nil, nil)
}

func (s *PresenceService) CheckOnline(ctx context.Context, self, peer int) (bool, error) {
	var resp struct {
		Online bool `json:"online"`
	}
	path := fmt.Sprintf("/api/chat/online/%d/%d", self, peer)
	if err := s.rc.get(ctx, "presence.check", path, &resp); err != nil {
		return false, err
	}

	return resp.Online, nil
}

// NotificationService fetches unread totals wholesale. Counts are never
// mutated locally; a refresh replaces the previous snapshot.
type NotificationService struct {
	rc *restClient
}

func (s *NotificationService) Fetch(ctx context.Context, self int) (types.NotificationCounts, error) {
	var counts types.NotificationCounts
	path := fmt.Sprintf("/api/chat/notifications/%d", self)
	if err := s.rc.get(ctx, "notifications.fetch", path, &counts); err != nil {
		return types.NotificationCounts{}, err
	}

	return counts, nil
}

// RoomService lists the conversations a user participates in, most recent
// first.
type RoomService struct {
	rc *restClient
}

func (s *RoomService) List(ctx context.Context, self int) ([]types.ChatRoom, error) {
	var rooms []types.ChatRoom
	path := fmt.Sprintf("/api/chat/rooms/%d", self)
	if err := s.rc.get(ctx, "rooms.list", path, &rooms); err != nil {
		return nil, err
	}

	return rooms, nil
}
