package types

import (
	"fmt"
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	AvatarUrl    string    `json:"avatar_url,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id             int       `json:"id"`
	ExternalId     string    `json:"external_id"`
	ConversationId string    `json:"conversation_id"`
	SenderId       int       `json:"sender_id"`
	ReceiverId     int       `json:"receiver_id"`
	Body           string    `json:"body"`
	Read           bool      `json:"read"`
	Timestamp      time.Time `json:"timestamp"`
}

// ChatRoom is a derived conversation summary. Rooms are never persisted;
// they are materialized from message history joined with the peer's account.
type ChatRoom struct {
	PeerId        int       `json:"peer_id"`
	PeerName      string    `json:"peer_name"`
	PeerAvatarUrl string    `json:"peer_avatar_url,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// NotificationCounts carries a user's total unread count plus the
// per-conversation breakdown keyed by peer id.
type NotificationCounts struct {
	Total int         `json:"total"`
	Rooms map[int]int `json:"rooms"`
}

// ConversationKey returns the canonical key for the conversation between two
// identities. The key is order-independent so both parties derive the same one.
func ConversationKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
