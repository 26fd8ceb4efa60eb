package kafka

import "encoding/json"

// Patterns emitted on the gateway firehose topic.
const (
	patternMessageSent       = "message.sent"
	patternDocumentProcessed = "document.processed"
)

// firehoseEvent is the envelope on the gateway events topic.
type firehoseEvent struct {
	Pattern string       `json:"pattern"`
	Data    firehoseData `json:"data"`
}

type firehoseData struct {
	ChatID    string          `json:"chat_id" validate:"required"`
	MessageID string          `json:"message_id"`
	Message   json.RawMessage `json:"message"`
}
