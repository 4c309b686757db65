package client

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/bookitnow/chat-server/internal/types"
	"github.com/gorilla/websocket"
)

const (
	emitWait = 10 * time.Second

	deliveryBuffer = 256
)

// Transport is the push channel for one session. Envelopes read off the
// socket are decoded once and delivered on a single channel; Emit sends an
// envelope to the server. Close is safe to call more than once.
type Transport struct {
	conn *websocket.Conn
	log  *log.Logger

	writeMu sync.Mutex

	deliveries chan types.Envelope
	done       chan struct{}
	closeOnce  sync.Once
}

// DialTransport connects to the push endpoint with the session token in the
// handshake.
func DialTransport(ctx context.Context, wsURL, token string, logger *log.Logger) (*Transport, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, newError(KindTransport, "transport.dial", err)
	}

	t := &Transport{
		conn:       conn,
		log:        logger,
		deliveries: make(chan types.Envelope, deliveryBuffer),
		done:       make(chan struct{}),
	}

	go t.readLoop()

	return t, nil
}

func (t *Transport) readLoop() {
	defer close(t.deliveries)

	for {
		var env types.Envelope
		if err := t.conn.ReadJSON(&env); err != nil {
			select {
			case <-t.done:
			default:
				t.log.Printf("transport read: %v", err)
			}
			return
		}

		select {
		case t.deliveries <- env:
		case <-t.done:
			return
		}
	}
}

// Deliveries is the stream of envelopes pushed by the server. It is closed
// when the transport shuts down.
func (t *Transport) Deliveries() <-chan types.Envelope {
	return t.deliveries
}

func (t *Transport) Emit(env types.Envelope) error {
	select {
	case <-t.done:
		return newError(KindClosed, "transport.emit", nil)
	default:
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(emitWait))
	if err := t.conn.WriteJSON(env); err != nil {
		return newError(KindTransport, "transport.emit", err)
	}

	return nil
}

func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
	})

	return err
}
