package types

import (
	"encoding/json"
	"fmt"
)

// Push channel wire format. Every event on the socket, in either direction,
// is a tagged envelope so new event kinds can be added without breaking
// existing decoders.
const (
	EventChatMessage = "chat.message"
	EventError       = "error"

	EnvelopeVersion = 1
)

type Envelope struct {
	Type    string          `json:"type"`
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ChatMessagePayload struct {
	Message Message `json:"message"`
}

type ErrorPayload struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

func NewChatMessageEnvelope(msg Message) (Envelope, error) {
	payload, err := json.Marshal(ChatMessagePayload{Message: msg})
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}

	return Envelope{
		Type:    EventChatMessage,
		Version: EnvelopeVersion,
		Payload: payload,
	}, nil
}

func NewErrorEnvelope(code int, msg string) Envelope {
	payload, _ := json.Marshal(ErrorPayload{Code: code, Error: msg})
	return Envelope{
		Type:    EventError,
		Version: EnvelopeVersion,
		Payload: payload,
	}
}

// DecodeChatMessage decodes a chat.message envelope. It rejects unknown event
// types and versions so callers handle exactly one event shape.
func (e Envelope) DecodeChatMessage() (Message, error) {
	if e.Type != EventChatMessage {
		return Message{}, fmt.Errorf("unexpected event type %q", e.Type)
	}
	if e.Version != EnvelopeVersion {
		return Message{}, fmt.Errorf("unsupported envelope version %d", e.Version)
	}

	var payload ChatMessagePayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return Message{}, fmt.Errorf("unmarshal payload: %w", err)
	}

	return payload.Message, nil
}
