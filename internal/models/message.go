package models

// MessageType classifies a gateway message payload.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeDocument MessageType = "document"
	MessageTypeVideo    MessageType = "video"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeNone     MessageType = "none"
)

// Reaction is a single emoji reaction on a message. A user holds at most one
// reaction per message; applying a new one replaces the previous.
type Reaction struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// Message is the canonical gateway message. Immutable once received except for
// its reaction list.
type Message struct {
	ID        string      `json:"id"`
	ChatID    string      `json:"chat_id"`
	Timestamp int64       `json:"timestamp"`
	Sender    string      `json:"sender"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content,omitempty"`
	MediaRef  string      `json:"media_ref,omitempty"`
	Reactions []Reaction  `json:"reactions"`
}

// ApplyReaction sets the user's reaction on the message, replacing any prior
// reaction from the same user.
func (m *Message) ApplyReaction(userID, emoji string) {
	for i, r := range m.Reactions {
		if r.UserID == userID {
			m.Reactions[i].Emoji = emoji
			return
		}
	}
	m.Reactions = append(m.Reactions, Reaction{UserID: userID, Emoji: emoji})
}

// HasMedia reports whether the message carries a downloadable payload.
func (m *Message) HasMedia() bool {
	switch m.Type {
	case MessageTypeImage, MessageTypeDocument, MessageTypeVideo, MessageTypeAudio:
		return true
	}
	return false
}

// SendMessageParams are the caller-supplied fields for an outgoing message.
// At least one of Text or MediaURL must be present.
type SendMessageParams struct {
	Text        string   `json:"text,omitempty"`
	MediaURL    string   `json:"media_url,omitempty"`
	MediaType   string   `json:"media_type,omitempty"`
	Caption     string   `json:"caption,omitempty"`
	QuotedMsgID string   `json:"quoted_msg_id,omitempty"`
	Mentions    []string `json:"mentions,omitempty"`
}

// Validate rejects a send with neither text nor media.
func (p SendMessageParams) Validate() error {
	if p.Text == "" && p.MediaURL == "" {
		return &ValidationError{Reason: "message requires text or media_url"}
	}
	return nil
}
