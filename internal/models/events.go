package models

// ChannelEventType enumerates the inbound events a chat event channel
// delivers.
type ChannelEventType string

const (
	EventNewMessage        ChannelEventType = "new_message"
	EventDocumentProcessed ChannelEventType = "document_processed"
	EventConnected         ChannelEventType = "connected"
	EventDisconnected      ChannelEventType = "disconnected"
)

// ChannelEvent is one event from the gateway socket (or an equivalent
// transport). Message is set for new_message; MessageID for
// document_processed.
type ChannelEvent struct {
	Type      ChannelEventType `json:"type"`
	ChatID    string           `json:"chat_id,omitempty"`
	Message   *Message         `json:"message,omitempty"`
	MessageID string           `json:"message_id,omitempty"`
}
