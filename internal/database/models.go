package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	AvatarUrl    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Message struct {
	Id             int
	ExternalId     string
	ConversationId string
	SenderId       int
	ReceiverId     int
	Body           string
	Read           bool
	CreatedAt      time.Time
}

// RoomSummary is one row of the derived chat-room directory: the counterpart's
// display data plus the time of the most recent message in the conversation.
type RoomSummary struct {
	PeerId        int
	PeerUsername  string
	PeerAvatarUrl string
	LastMessageAt time.Time
}

// UnreadCount is the number of unread messages a user has from one peer.
type UnreadCount struct {
	PeerId int
	Count  int
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	AvatarUrl    string
	PasswordHash string
}

type CreateMessageParams struct {
	ExternalId string
	SenderId   int
	ReceiverId int
	Body       string
}
