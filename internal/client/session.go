package client

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bookitnow/chat-server/internal/types"
)

type State string

const (
	StateIdle          State = "idle"
	StateRoomsLoaded   State = "rooms_loaded"
	StateRoomSelected  State = "room_selected"
	StateHistoryLoaded State = "history_loaded"
	StateStreaming     State = "streaming"
)

type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryConfirmed EntryStatus = "confirmed"
	EntryFailed    EntryStatus = "failed"
)

// TranscriptEntry is one message in the active conversation. Mine reports
// whether the authenticated user sent it, which decides transcript alignment.
type TranscriptEntry struct {
	Message types.Message
	Status  EntryStatus
	Mine    bool
}

type SessionConfig struct {
	SelfId     int
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Transport  *Transport
	Logger     *log.Logger
}

// Session owns the chat view lifecycle for one authenticated user. It moves
// through Idle, RoomsLoaded, RoomSelected, HistoryLoaded and Streaming;
// selecting a room always tears down the previous room's push subscription
// before anything else happens.
type Session struct {
	selfId    int
	log       *log.Logger
	transport *Transport

	History       *HistoryService
	Presence      *PresenceService
	Notifications *NotificationService
	Rooms         *RoomService

	mu           sync.Mutex
	state        State
	roomList     []types.ChatRoom
	selectedPeer int
	transcript   []TranscriptEntry
	closed       bool

	subStop chan struct{}
	subDone chan struct{}
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.SelfId <= 0 {
		return nil, newError(KindInvalidInput, "session.new", fmt.Errorf("invalid user id %d", cfg.SelfId))
	}
	if cfg.BaseURL == "" {
		return nil, newError(KindInvalidInput, "session.new", fmt.Errorf("base URL cannot be empty"))
	}
	if cfg.Token == "" {
		return nil, newError(KindInvalidInput, "session.new", fmt.Errorf("token cannot be empty"))
	}
	if cfg.Logger == nil {
		return nil, newError(KindInvalidInput, "session.new", fmt.Errorf("logger cannot be nil"))
	}

	rc := newRestClient(cfg.BaseURL, cfg.Token, cfg.HTTPClient)

	return &Session{
		selfId:        cfg.SelfId,
		log:           cfg.Logger,
		transport:     cfg.Transport,
		History:       &HistoryService{rc: rc},
		Presence:      &PresenceService{rc: rc},
		Notifications: &NotificationService{rc: rc},
		Rooms:         &RoomService{rc: rc},
		state:         StateIdle,
	}, nil
}

// LoadRooms fetches the room directory. From Idle this moves the session to
// RoomsLoaded; in later states it only refreshes the directory.
func (s *Session) LoadRooms(ctx context.Context) ([]types.ChatRoom, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, newError(KindClosed, "session.loadrooms", nil)
	}
	s.mu.Unlock()

	rooms, err := s.Rooms.List(ctx, s.selfId)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomList = rooms
	if s.state == StateIdle {
		s.state = StateRoomsLoaded
	}

	return rooms, nil
}

// SelectRoom switches the active conversation. The previous room's push
// subscription is fully stopped before the new room's history is fetched, so
// a push for the old room can never land in the new transcript.
func (s *Session) SelectRoom(ctx context.Context, peerId int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return newError(KindClosed, "session.selectroom", nil)
	}
	if s.state == StateIdle {
		s.mu.Unlock()
		return newError(KindInvalidInput, "session.selectroom", fmt.Errorf("room directory not loaded"))
	}

	stop, done := s.subStop, s.subDone
	s.subStop, s.subDone = nil, nil
	s.selectedPeer = peerId
	s.transcript = nil
	s.state = StateRoomSelected
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	messages, err := s.History.Fetch(ctx, s.selfId, peerId)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.selectedPeer != peerId {
		// A later SelectRoom or Close superseded this fetch.
		return nil
	}

	entries := make([]TranscriptEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, TranscriptEntry{
			Message: m,
			Status:  EntryConfirmed,
			Mine:    m.SenderId == s.selfId,
		})
	}
	s.transcript = entries
	s.state = StateHistoryLoaded

	return nil
}

// Stream subscribes the transport to the selected room. Pushes from any other
// conversation are discarded.
func (s *Session) Stream() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newError(KindClosed, "session.stream", nil)
	}
	if s.state == StateStreaming {
		return nil
	}
	if s.state != StateHistoryLoaded {
		return newError(KindInvalidInput, "session.stream", fmt.Errorf("no history loaded"))
	}
	if s.transport == nil {
		return newError(KindInvalidInput, "session.stream", fmt.Errorf("no transport configured"))
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.subStop, s.subDone = stop, done
	s.state = StateStreaming

	go s.filterLoop(s.selectedPeer, stop, done)

	return nil
}

// StopStreaming detaches the push subscription, returning to HistoryLoaded.
func (s *Session) StopStreaming() {
	s.mu.Lock()
	stop, done := s.subStop, s.subDone
	s.subStop, s.subDone = nil, nil
	if s.state == StateStreaming {
		s.state = StateHistoryLoaded
	}
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (s *Session) filterLoop(peer int, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		case env, ok := <-s.transport.Deliveries():
			if !ok {
				return
			}

			msg, err := env.DecodeChatMessage()
			if err != nil {
				s.log.Printf("discarding push: %v", err)
				continue
			}

			// The hub also echoes a user's own sends to their other
			// sessions, so both directions of the pair belong here.
			fromPeer := msg.SenderId == peer && msg.ReceiverId == s.selfId
			fromSelf := msg.SenderId == s.selfId && msg.ReceiverId == peer
			if !fromPeer && !fromSelf {
				continue
			}

			s.mu.Lock()
			if s.state == StateStreaming && s.selectedPeer == peer {
				s.transcript = append(s.transcript, TranscriptEntry{
					Message: msg,
					Status:  EntryConfirmed,
					Mine:    fromSelf,
				})
			}
			s.mu.Unlock()
		}
	}
}

// Send appends exactly one pending entry, performs exactly one durable append
// and reconciles the entry to confirmed or failed. The push notification is
// emitted only after the append succeeds.
func (s *Session) Send(ctx context.Context, body string) error {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return newError(KindInvalidInput, "session.send", fmt.Errorf("message body cannot be empty"))
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return newError(KindClosed, "session.send", nil)
	}
	if s.state != StateHistoryLoaded && s.state != StateStreaming {
		s.mu.Unlock()
		return newError(KindInvalidInput, "session.send", fmt.Errorf("no room selected"))
	}

	peer := s.selectedPeer
	idx := len(s.transcript)
	s.transcript = append(s.transcript, TranscriptEntry{
		Message: types.Message{
			SenderId:   s.selfId,
			ReceiverId: peer,
			Body:       trimmed,
			Timestamp:  time.Now().UTC(),
		},
		Status: EntryPending,
		Mine:   true,
	})
	s.mu.Unlock()

	msg, err := s.History.Append(ctx, s.selfId, peer, trimmed)

	s.mu.Lock()
	if s.selectedPeer == peer && idx < len(s.transcript) && s.transcript[idx].Status == EntryPending {
		if err != nil {
			s.transcript[idx].Status = EntryFailed
		} else {
			s.transcript[idx].Message = msg
			s.transcript[idx].Status = EntryConfirmed
		}
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}

	if s.transport != nil {
		env, envErr := types.NewChatMessageEnvelope(msg)
		if envErr != nil {
			s.log.Printf("encode push: %v", envErr)
			return nil
		}
		if emitErr := s.transport.Emit(env); emitErr != nil {
			// The message is durable; the peer catches up on next fetch.
			s.log.Printf("emit push: %v", emitErr)
		}
	}

	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SelectedPeer() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedPeer
}

func (s *Session) RoomList() []types.ChatRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]types.ChatRoom, len(s.roomList))
	copy(rooms, s.roomList)
	return rooms
}

func (s *Session) Transcript() []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]TranscriptEntry, len(s.transcript))
	copy(entries, s.transcript)
	return entries
}

// Close stops the push subscription and the transport. It is safe to call
// more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop, done := s.subStop, s.subDone
	s.subStop, s.subDone = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	if s.transport != nil {
		return s.transport.Close()
	}

	return nil
}
