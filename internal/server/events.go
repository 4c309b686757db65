package server

import (
	"net/http"

	"github.com/bookitnow/chat-server/internal/types"
)

// Metric names reported by the hub.
const (
	MetricActiveConnections = "ActiveConnections"
	MetricEventsDelivered   = "EventsDelivered"
	MetricEventsDropped     = "EventsDropped"
)

// routedEvent is a validated chat.message envelope on its way from one
// session to the receiver's sessions.
type routedEvent struct {
	env    types.Envelope
	msg    types.Message
	origin *Client
}

func ErrInvalidEvent() types.Envelope {
	return types.NewErrorEnvelope(http.StatusBadRequest, "invalid event")
}

func ErrUnsupportedEvent(eventType string) types.Envelope {
	return types.NewErrorEnvelope(http.StatusBadRequest, "unsupported event type: "+eventType)
}

func ErrSenderMismatch() types.Envelope {
	return types.NewErrorEnvelope(http.StatusForbidden, "sender does not match authenticated identity")
}
