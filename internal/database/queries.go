package database

import (
	"time"

	"github.com/bookitnow/chat-server/internal/types"
)

const defaultConversationLimit = 50

func (db *PgChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, avatar_url, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, username, email, avatar_url, created_at, updated_at",
		params.Username,
		params.EmailAddress,
		params.AvatarUrl,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.AvatarUrl,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgChatRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, avatar_url, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.AvatarUrl,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, avatar_url, password_hash, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.AvatarUrl,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (external_id, conversation_key, sender_id, receiver_id, body, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"RETURNING id, external_id, conversation_key, sender_id, receiver_id, body, is_read, created_at",
		params.ExternalId,
		types.ConversationKey(params.SenderId, params.ReceiverId),
		params.SenderId,
		params.ReceiverId,
		params.Body,
		time.Now().UTC(),
	)

	var msg Message
	err := res.Scan(
		&msg.Id,
		&msg.ExternalId,
		&msg.ConversationId,
		&msg.SenderId,
		&msg.ReceiverId,
		&msg.Body,
		&msg.Read,
		&msg.CreatedAt,
	)

	return msg, err
}

// GetConversation returns the most recent messages between two identities in
// ascending creation order.
func (db *PgChatRepository) GetConversation(userId, peerId, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = defaultConversationLimit
	}

	rows, err := db.conn.Query(
		"SELECT id, external_id, conversation_key, sender_id, receiver_id, body, is_read, created_at "+
			"FROM (SELECT * FROM messages WHERE conversation_key = $1 ORDER BY created_at DESC, id DESC LIMIT $2) m "+
			"ORDER BY created_at ASC, id ASC",
		types.ConversationKey(userId, peerId),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(
			&msg.Id,
			&msg.ExternalId,
			&msg.ConversationId,
			&msg.SenderId,
			&msg.ReceiverId,
			&msg.Body,
			&msg.Read,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// ListRooms materializes the chat-room directory for a user. Rooms are not
// stored anywhere; each row is derived from the messages exchanged with one
// peer plus that peer's account record.
func (db *PgChatRepository) ListRooms(userId int) ([]RoomSummary, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.username, a.avatar_url, t.last_message_at FROM ("+
			"SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS peer_id, "+
			"MAX(created_at) AS last_message_at "+
			"FROM messages WHERE sender_id = $1 OR receiver_id = $1 GROUP BY 1"+
			") t JOIN accounts a ON a.id = t.peer_id "+
			"ORDER BY t.last_message_at DESC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []RoomSummary
	for rows.Next() {
		var room RoomSummary
		if err = rows.Scan(&room.PeerId, &room.PeerUsername, &room.PeerAvatarUrl, &room.LastMessageAt); err != nil {
			return nil, err
		}

		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PgChatRepository) UnreadCounts(userId int) ([]UnreadCount, error) {
	rows, err := db.conn.Query(
		"SELECT sender_id, COUNT(*) FROM messages "+
			"WHERE receiver_id = $1 AND NOT is_read GROUP BY sender_id",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []UnreadCount
	for rows.Next() {
		var c UnreadCount
		if err = rows.Scan(&c.PeerId, &c.Count); err != nil {
			return nil, err
		}

		counts = append(counts, c)
	}

	return counts, rows.Err()
}

func (db *PgChatRepository) MarkConversationRead(userId, peerId int) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET is_read = TRUE WHERE receiver_id = $1 AND sender_id = $2 AND NOT is_read",
		userId,
		peerId,
	)

	return err
}
