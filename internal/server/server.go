package server

import (
	"context"
	"log"
	"net/http"

	"github.com/bookitnow/chat-server/internal/stats"
	"github.com/bookitnow/chat-server/internal/types"
)

// ChatServer owns the push channel: it tracks which sessions belong to which
// identity and fans validated chat events out to the receiver. All session
// bookkeeping happens on the Run goroutine.
type ChatServer struct {
	log            *log.Logger
	stats          stats.StatsProvider
	sessions       map[int]map[*Client]struct{}
	registerChan   chan *Client
	deRegisterChan chan *Client
	routeChan      chan *routedEvent
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, sp stats.StatsProvider) (*ChatServer, error) {
	for _, m := range []string{MetricActiveConnections, MetricEventsDelivered, MetricEventsDropped} {
		sp.RegisterMetric(m)
	}

	return &ChatServer{
		log:            logger,
		stats:          sp,
		sessions:       make(map[int]map[*Client]struct{}),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		routeChan:      make(chan *routedEvent, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.registerChan:
			cs.log.Printf("registering session for %q", client.user.Username)
			cs.addSession(client)
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing session for %q", client.user.Username)
			cs.removeSession(client)
		case ev := <-cs.routeChan:
			cs.deliver(ev)
		case <-cs.stop:
			cs.log.Println("closing sessions")
			for _, clients := range cs.sessions {
				for c := range clients {
					c.stopClient()
				}
			}

			close(cs.done)
			return
		}
	}
}

// RegisterClient announces a new authenticated session to the hub.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.registerChan <- c
}

func (cs *ChatServer) DeregisterClient(c *Client) {
	select {
	case cs.deRegisterChan <- c:
	case <-cs.done:
	}
}

func (cs *ChatServer) addSession(c *Client) {
	if cs.sessions[c.user.Id] == nil {
		cs.sessions[c.user.Id] = make(map[*Client]struct{})
	}
	cs.sessions[c.user.Id][c] = struct{}{}
	cs.stats.Incr(MetricActiveConnections)
}

func (cs *ChatServer) removeSession(c *Client) {
	clients, ok := cs.sessions[c.user.Id]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}

	delete(clients, c)
	if len(clients) == 0 {
		delete(cs.sessions, c.user.Id)
	}
	cs.stats.Decr(MetricActiveConnections)
}

func (cs *ChatServer) route(ev *routedEvent) {
	select {
	case cs.routeChan <- ev:
	default:
		cs.stats.Incr(MetricEventsDropped)
		cs.log.Println("route channel full, dropping event")
		ev.origin.queueEvent(types.NewErrorEnvelope(http.StatusServiceUnavailable, "service unavailable"))
	}
}

// deliver fans a chat event out to every session of the receiver, and to the
// sender's other sessions so multiple tabs stay in sync.
func (cs *ChatServer) deliver(ev *routedEvent) {
	for c := range cs.sessions[ev.msg.ReceiverId] {
		if c.queueEvent(ev.env) {
			cs.stats.Incr(MetricEventsDelivered)
		}
	}

	if ev.msg.SenderId == ev.msg.ReceiverId {
		return
	}

	for c := range cs.sessions[ev.msg.SenderId] {
		if c == ev.origin {
			continue
		}
		if c.queueEvent(ev.env) {
			cs.stats.Incr(MetricEventsDelivered)
		}
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("shutting down chat server...")
	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
