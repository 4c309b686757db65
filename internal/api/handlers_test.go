package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bookitnow/chat-server/internal/config"
	"github.com/bookitnow/chat-server/internal/database"
	"github.com/bookitnow/chat-server/internal/presence"
	"github.com/bookitnow/chat-server/internal/testutil"
	"github.com/bookitnow/chat-server/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestApp(t *testing.T, db database.ChatRepository, ps presence.Store) *ChatApp {
	t.Helper()
	return NewChatApp(http.NewServeMux(), testutil.TestLogger(t), nil, db, ps, nil, &config.Config{
		SigningKey: []byte("test-signing-key"),
	})
}

// authedRequest builds a request carrying an authenticated user id and the
// peerId path segment the chat handlers read.
func authedRequest(method, target string, body *bytes.Buffer, userId int, peerId string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(WithUserId(req.Context(), userId))
	if peerId != "" {
		req.SetPathValue("peerId", peerId)
	}
	return req
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name     string
		dbErr    error
		redisErr error
	}{
		{
			name: "successful health check",
		},
		{
			name:  "db unreachable",
			dbErr: errors.New("db error"),
		},
		{
			name:     "presence store unreachable",
			redisErr: errors.New("redis error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("Ping").Return(tc.dbErr).Once()

			mockPresence := &presence.MockStore{}
			defer mockPresence.AssertExpectations(t)
			if tc.dbErr == nil {
				mockPresence.On("Ping", mock.Anything).Return(tc.redisErr).Once()
			}

			app := newTestApp(t, mockRepo, mockPresence)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			app.healthCheck(rr, req)

			if tc.dbErr != nil || tc.redisErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
			} else {
				assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
				assert.Equal(t, "OK", rr.Body.String(), "expected response body to be 'OK'")
			}
		})
	}
}

func Test_getConversation(t *testing.T) {
	now := time.Now().UTC().Round(time.Millisecond)
	msgs := []database.Message{
		{
			Id:             1,
			ExternalId:     "abc123",
			ConversationId: types.ConversationKey(1, 2),
			SenderId:       2,
			ReceiverId:     1,
			Body:           "hello",
			CreatedAt:      now.Add(-time.Minute),
		},
		{
			Id:             2,
			ExternalId:     "def456",
			ConversationId: types.ConversationKey(1, 2),
			SenderId:       1,
			ReceiverId:     2,
			Body:           "hi",
			CreatedAt:      now,
		},
	}

	tcases := []struct {
		name        string
		peerId      string
		limit       string
		mockLimit   int
		mockMsgs    []database.Message
		mockErr     error
		setupMock   bool
		expectedErr *ApiError
	}{
		{
			name:      "returns conversation history",
			peerId:    "2",
			mockLimit: 0,
			mockMsgs:  msgs,
			setupMock: true,
		},
		{
			name:      "honors limit parameter",
			peerId:    "2",
			limit:     "10",
			mockLimit: 10,
			mockMsgs:  msgs,
			setupMock: true,
		},
		{
			name:        "rejects non-numeric peer id",
			peerId:      "abc",
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "rejects non-numeric limit",
			peerId:      "2",
			limit:       "many",
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "fails with db error",
			peerId:      "2",
			mockMsgs:    nil,
			mockErr:     errors.New("db error"),
			setupMock:   true,
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.setupMock {
				mockRepo.On("GetConversation", 1, 2, tc.mockLimit).Return(tc.mockMsgs, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil)
			target := "/api/chat/chat-with/1/" + tc.peerId
			if tc.limit != "" {
				target += "?limit=" + tc.limit
			}
			req := authedRequest(http.MethodGet, target, nil, 1, tc.peerId)

			rr := httptest.NewRecorder()
			app.getConversation(rr, req)

			if tc.expectedErr != nil {
				var apiErr ApiError
				err := json.NewDecoder(rr.Body).Decode(&apiErr)
				assert.NoError(t, err, "failed to decode error response")
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code, "expected status code to match")
				assert.Equal(t, *tc.expectedErr, apiErr, "expected ApiError response")
				return
			}

			assert.Equal(t, http.StatusOK, rr.Code)

			var got []types.Message
			err := json.NewDecoder(rr.Body).Decode(&got)
			assert.NoError(t, err, "failed to decode response")
			assert.Len(t, got, len(tc.mockMsgs))
			for i, m := range tc.mockMsgs {
				assert.Equal(t, m.ExternalId, got[i].ExternalId)
				assert.Equal(t, m.SenderId, got[i].SenderId)
				assert.Equal(t, m.ReceiverId, got[i].ReceiverId)
				assert.Equal(t, m.Body, got[i].Body)
				assert.Equal(t, m.CreatedAt, got[i].Timestamp)
			}
		})
	}
}

func Test_sendMessage(t *testing.T) {
	saved := database.Message{
		Id:             7,
		ExternalId:     "xyz789",
		ConversationId: types.ConversationKey(1, 2),
		SenderId:       1,
		ReceiverId:     2,
		Body:           "see you at the venue",
		CreatedAt:      time.Now().UTC().Round(time.Millisecond),
	}

	tcases := []struct {
		name        string
		peerId      string
		body        string
		mockMsg     database.Message
		mockErr     error
		setupMock   bool
		expectedErr *ApiError
	}{
		{
			name:      "persists and returns the message",
			peerId:    "2",
			body:      `{"message":"see you at the venue"}`,
			mockMsg:   saved,
			setupMock: true,
		},
		{
			name:        "rejects empty message without touching the store",
			peerId:      "2",
			body:        `{"message":""}`,
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "rejects whitespace-only message",
			peerId:      "2",
			body:        `{"message":"   "}`,
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "rejects invalid json",
			peerId:      "2",
			body:        "not json",
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "rejects non-numeric peer id",
			peerId:      "abc",
			body:        `{"message":"hello"}`,
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "fails with db error",
			peerId:      "2",
			body:        `{"message":"hello"}`,
			mockErr:     errors.New("db error"),
			setupMock:   true,
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.setupMock {
				mockRepo.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
					return p.SenderId == 1 && p.ReceiverId == 2 && p.ExternalId != ""
				})).Return(tc.mockMsg, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil)
			req := authedRequest(http.MethodPost, "/api/chat/chat-with/1/"+tc.peerId,
				bytes.NewBufferString(tc.body), 1, tc.peerId)

			rr := httptest.NewRecorder()
			app.sendMessage(rr, req)

			if tc.expectedErr != nil {
				var apiErr ApiError
				err := json.NewDecoder(rr.Body).Decode(&apiErr)
				assert.NoError(t, err, "failed to decode error response")
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code, "expected status code to match")
				assert.Equal(t, *tc.expectedErr, apiErr, "expected ApiError response")
				return
			}

			assert.Equal(t, http.StatusCreated, rr.Code)

			var got types.Message
			err := json.NewDecoder(rr.Body).Decode(&got)
			assert.NoError(t, err, "failed to decode response")
			assert.Equal(t, saved.ExternalId, got.ExternalId)
			assert.Equal(t, saved.SenderId, got.SenderId)
			assert.Equal(t, saved.ReceiverId, got.ReceiverId)
			assert.Equal(t, saved.Body, got.Body)
		})
	}
}

func Test_listRooms(t *testing.T) {
	now := time.Now().UTC().Round(time.Millisecond)
	summaries := []database.RoomSummary{
		{PeerId: 3, PeerUsername: "organizer-amy", PeerAvatarUrl: "https://img.test/amy.png", LastMessageAt: now},
		{PeerId: 2, PeerUsername: "venue-bob", LastMessageAt: now.Add(-time.Hour)},
	}

	tcases := []struct {
		name        string
		mockRooms   []database.RoomSummary
		mockErr     error
		expectedErr *ApiError
	}{
		{
			name:      "returns rooms sorted by recency",
			mockRooms: summaries,
		},
		{
			name:      "returns empty list for new user",
			mockRooms: []database.RoomSummary{},
		},
		{
			name:        "fails with db error",
			mockErr:     errors.New("db error"),
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("ListRooms", 1).Return(tc.mockRooms, tc.mockErr).Once()

			app := newTestApp(t, mockRepo, nil)
			req := authedRequest(http.MethodGet, "/api/chat/rooms/1", nil, 1, "")

			rr := httptest.NewRecorder()
			app.listRooms(rr, req)

			if tc.expectedErr != nil {
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code, "expected status code to match")
				return
			}

			assert.Equal(t, http.StatusOK, rr.Code)

			var got []types.ChatRoom
			err := json.NewDecoder(rr.Body).Decode(&got)
			assert.NoError(t, err, "failed to decode response")
			assert.Len(t, got, len(tc.mockRooms))
			for i, sum := range tc.mockRooms {
				assert.Equal(t, sum.PeerId, got[i].PeerId)
				assert.Equal(t, sum.PeerUsername, got[i].PeerName)
				assert.Equal(t, sum.PeerAvatarUrl, got[i].PeerAvatarUrl)
				assert.Equal(t, sum.LastMessageAt, got[i].LastMessageAt)
			}
		})
	}
}

func Test_notifications(t *testing.T) {
	tcases := []struct {
		name          string
		mockCounts    []database.UnreadCount
		mockErr       error
		expectedTotal int
		expectedRooms map[int]int
		expectedErr   *ApiError
	}{
		{
			name: "aggregates unread counts per sender",
			mockCounts: []database.UnreadCount{
				{PeerId: 2, Count: 3},
				{PeerId: 5, Count: 1},
			},
			expectedTotal: 4,
			expectedRooms: map[int]int{2: 3, 5: 1},
		},
		{
			name:          "no unread messages",
			mockCounts:    []database.UnreadCount{},
			expectedTotal: 0,
			expectedRooms: map[int]int{},
		},
		{
			name:        "fails with db error",
			mockErr:     errors.New("db error"),
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("UnreadCounts", 1).Return(tc.mockCounts, tc.mockErr).Once()

			app := newTestApp(t, mockRepo, nil)
			req := authedRequest(http.MethodGet, "/api/chat/notifications/1", nil, 1, "")

			rr := httptest.NewRecorder()
			app.notifications(rr, req)

			if tc.expectedErr != nil {
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code, "expected status code to match")
				return
			}

			assert.Equal(t, http.StatusOK, rr.Code)

			var got types.NotificationCounts
			err := json.NewDecoder(rr.Body).Decode(&got)
			assert.NoError(t, err, "failed to decode response")
			assert.Equal(t, tc.expectedTotal, got.Total)
			assert.Equal(t, tc.expectedRooms, got.Rooms)
		})
	}
}

func Test_markRead(t *testing.T) {
	tcases := []struct {
		name        string
		peerId      string
		mockErr     error
		setupMock   bool
		expectedErr *ApiError
	}{
		{
			name:      "marks conversation read",
			peerId:    "2",
			setupMock: true,
		},
		{
			name:        "rejects non-numeric peer id",
			peerId:      "abc",
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "fails with db error",
			peerId:      "2",
			mockErr:     errors.New("db error"),
			setupMock:   true,
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.setupMock {
				mockRepo.On("MarkConversationRead", 1, 2).Return(tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil)
			req := authedRequest(http.MethodPost, "/api/chat/read/1/"+tc.peerId, nil, 1, tc.peerId)

			rr := httptest.NewRecorder()
			app.markRead(rr, req)

			if tc.expectedErr != nil {
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code, "expected status code to match")
				return
			}

			assert.Equal(t, http.StatusNoContent, rr.Code)
		})
	}
}

func Test_presenceHandlers(t *testing.T) {
	t.Run("mark online", func(t *testing.T) {
		mockPresence := &presence.MockStore{}
		defer mockPresence.AssertExpectations(t)
		mockPresence.On("MarkOnline", mock.Anything, 1, 2).Return(nil).Once()

		app := newTestApp(t, &database.MockChatRepository{}, mockPresence)
		req := authedRequest(http.MethodPost, "/api/chat/online/1/2", nil, 1, "2")

		rr := httptest.NewRecorder()
		app.markOnline(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("mark online propagates store error", func(t *testing.T) {
		mockPresence := &presence.MockStore{}
		defer mockPresence.AssertExpectations(t)
		mockPresence.On("MarkOnline", mock.Anything, 1, 2).Return(errors.New("redis down")).Once()

		app := newTestApp(t, &database.MockChatRepository{}, mockPresence)
		req := authedRequest(http.MethodPost, "/api/chat/online/1/2", nil, 1, "2")

		rr := httptest.NewRecorder()
		app.markOnline(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("mark offline", func(t *testing.T) {
		mockPresence := &presence.MockStore{}
		defer mockPresence.AssertExpectations(t)
		mockPresence.On("MarkOffline", mock.Anything, 1).Return(nil).Once()

		app := newTestApp(t, &database.MockChatRepository{}, mockPresence)
		req := authedRequest(http.MethodPost, "/api/chat/offline/1", nil, 1, "")

		rr := httptest.NewRecorder()
		app.markOffline(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("check online", func(t *testing.T) {
		mockPresence := &presence.MockStore{}
		defer mockPresence.AssertExpectations(t)
		mockPresence.On("IsOnline", mock.Anything, 1, 2).Return(true, nil).Once()

		app := newTestApp(t, &database.MockChatRepository{}, mockPresence)
		req := authedRequest(http.MethodGet, "/api/chat/online/1/2", nil, 1, "2")

		rr := httptest.NewRecorder()
		app.checkOnline(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var got OnlineResponse
		err := json.NewDecoder(rr.Body).Decode(&got)
		assert.NoError(t, err, "failed to decode response")
		assert.True(t, got.Online)
	})

	t.Run("check online rejects non-numeric peer id", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatRepository{}, &presence.MockStore{})
		req := authedRequest(http.MethodGet, "/api/chat/online/1/abc", nil, 1, "abc")

		rr := httptest.NewRecorder()
		app.checkOnline(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func Test_writeJson(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{}, nil)

	rr := httptest.NewRecorder()
	app.writeJson(rr, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rr.Body.String(), `"hello":"world"`))

	rr = httptest.NewRecorder()
	app.writeJson(rr, http.StatusNoContent, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}
