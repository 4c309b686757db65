package database

type ChatRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	GetConversation(userId, peerId, limit int) ([]Message, error)
	ListRooms(userId int) ([]RoomSummary, error)
	UnreadCounts(userId int) ([]UnreadCount, error)
	MarkConversationRead(userId, peerId int) error
}
