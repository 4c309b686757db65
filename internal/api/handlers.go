package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/bookitnow/chat-server/internal/database"
	"github.com/bookitnow/chat-server/internal/server"
	"github.com/bookitnow/chat-server/internal/types"
	"github.com/gorilla/websocket"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	AvatarUrl string `json:"avatar_url"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

type OnlineResponse struct {
	Online bool `json:"online"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func userToApi(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Username:     u.Username,
		EmailAddress: u.EmailAddress,
		AvatarUrl:    u.AvatarUrl,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func messageToApi(m database.Message) types.Message {
	return types.Message{
		Id:             m.Id,
		ExternalId:     m.ExternalId,
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		ReceiverId:     m.ReceiverId,
		Body:           m.Body,
		Read:           m.Read,
		Timestamp:      m.CreatedAt,
	}
}

// pathPeerId parses the peerId path segment. The userId segment is validated
// by requireSelf before any handler runs.
func pathPeerId(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("peerId"))
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check: db:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.presence.Ping(r.Context()); err != nil {
		s.log.Println("health check: presence:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatApp) getConversation(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	peerId, err := pathPeerId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var limit int
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbMessages, err := s.db.GetConversation(userId, peerId, limit)
	if err != nil {
		s.log.Println("get conversation:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, msg := range dbMessages {
		messages = append(messages, messageToApi(msg))
	}

	s.writeJson(w, http.StatusOK, messages)
}

// sendMessage is the durable write path. The sender's client emits the push
// notification itself after this call succeeds; the two steps are not atomic.
func (s *ChatApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	peerId, err := pathPeerId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId, err := s.sid.Generate()
	if err != nil {
		s.log.Println("generate message id:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.db.CreateMessage(database.CreateMessageParams{
		ExternalId: externalId,
		SenderId:   userId,
		ReceiverId: peerId,
		Body:       req.Message,
	})
	if err != nil {
		s.log.Println("create message:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, messageToApi(msg))
}

func (s *ChatApp) listRooms(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	summaries, err := s.db.ListRooms(userId)
	if err != nil {
		s.log.Println("list rooms:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms := make([]types.ChatRoom, 0, len(summaries))
	for _, sum := range summaries {
		rooms = append(rooms, types.ChatRoom{
			PeerId:        sum.PeerId,
			PeerName:      sum.PeerUsername,
			PeerAvatarUrl: sum.PeerAvatarUrl,
			LastMessageAt: sum.LastMessageAt,
		})
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *ChatApp) notifications(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	counts, err := s.db.UnreadCounts(userId)
	if err != nil {
		s.log.Println("unread counts:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	resp := types.NotificationCounts{Rooms: make(map[int]int, len(counts))}
	for _, c := range counts {
		resp.Rooms[c.PeerId] = c.Count
		resp.Total += c.Count
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *ChatApp) markRead(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	peerId, err := pathPeerId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.MarkConversationRead(userId, peerId); err != nil {
		s.log.Println("mark conversation read:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) markOnline(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	peerId, err := pathPeerId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.presence.MarkOnline(r.Context(), userId, peerId); err != nil {
		s.log.Println("mark online:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) markOffline(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	if err := s.presence.MarkOffline(r.Context(), userId); err != nil {
		s.log.Println("mark offline:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) checkOnline(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	peerId, err := pathPeerId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	online, err := s.presence.IsOnline(r.Context(), userId, peerId)
	if err != nil {
		s.log.Println("check online:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, OnlineResponse{Online: online})
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(id)
	if err != nil {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(userToApi(user), conn, s.cs, s.log, s.stats)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
