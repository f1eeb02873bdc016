package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"socialgraph/internal/model"
)

// Frame types
const (
	TypeNewMessage      = "new_message"
	TypeNewNotification = "new_notification"
	TypeStartTyping     = "start_typing"
	TypeStopTyping      = "stop_typing"
)

// MessageFrame is pushed when a message is stored for the recipient.
type MessageFrame struct {
	Type string         `json:"type"`
	Data *model.Message `json:"data"`
}

// PingFrame tells the client to re-fetch its notifications.
type PingFrame struct {
	Type string `json:"type"`
}

type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
}

type TypingFrame struct {
	Type    string        `json:"type"`
	Payload TypingPayload `json:"payload"`
}

// InboundFrame is anything a client sends. Payload is decoded per type.
type InboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// TypingRequest is the payload of inbound start_typing/stop_typing.
type TypingRequest struct {
	ConversationID uuid.UUID `json:"conversationId"`
	RecipientID    int64     `json:"recipientId"`
}

func typingType(isTyping bool) string {
	if isTyping {
		return TypeStartTyping
	}
	return TypeStopTyping
}
