package whapi

import (
	"github.com/tidwall/gjson"

	"github.com/nguyentranbao-ct/chat-console/internal/models"
)

// The gateway proxies several source systems that nest media metadata under
// different field names (file_name vs filename, link vs url, caption used as
// a name fallback). Everything is normalized here so the rest of the code
// never branches on field presence.

var mediaKeys = map[string]models.MessageType{
	"image":    models.MessageTypeImage,
	"document": models.MessageTypeDocument,
	"video":    models.MessageTypeVideo,
	"audio":    models.MessageTypeAudio,
}

func decodeMessageList(body []byte, chatID string) ([]models.Message, error) {
	root := gjson.ParseBytes(body)

	list := root.Get("messages")
	if !list.Exists() && root.IsArray() {
		list = root
	}

	messages := make([]models.Message, 0, int(root.Get("count").Int()))
	list.ForEach(func(_, raw gjson.Result) bool {
		messages = append(messages, normalizeMessage(raw, chatID))
		return true
	})
	return messages, nil
}

func normalizeMessage(raw gjson.Result, chatID string) models.Message {
	msg := models.Message{
		ID:        raw.Get("id").String(),
		ChatID:    firstString(raw, "chat_id", "chatId"),
		Timestamp: raw.Get("timestamp").Int(),
		Sender:    firstString(raw, "from_name", "from", "sender"),
		Type:      models.MessageTypeNone,
		Content:   raw.Get("text.body").String(),
		Reactions: normalizeReactions(raw.Get("reactions")),
	}
	if msg.ChatID == "" {
		msg.ChatID = chatID
	}

	switch t := raw.Get("type").String(); t {
	case "text":
		msg.Type = models.MessageTypeText
	default:
		if mt, ok := mediaKeys[t]; ok {
			msg.Type = mt
			media := raw.Get(t)
			msg.MediaRef = firstString(media, "link", "url")
			if msg.Content == "" {
				msg.Content = media.Get("caption").String()
			}
		}
	}

	return msg
}

func normalizeReactions(raw gjson.Result) []models.Reaction {
	reactions := []models.Reaction{}
	raw.ForEach(func(_, r gjson.Result) bool {
		reactions = append(reactions, models.Reaction{
			UserID: firstString(r, "user_id", "userId", "from"),
			Emoji:  r.Get("emoji").String(),
		})
		return true
	})
	return reactions
}

// decodeAttachmentList projects image and document messages into the
// Attachment shape. Other media types are not part of the aggregation view.
func decodeAttachmentList(body []byte, chatID string) []models.Attachment {
	root := gjson.ParseBytes(body)

	list := root.Get("messages")
	if !list.Exists() && root.IsArray() {
		list = root
	}

	var attachments []models.Attachment
	list.ForEach(func(_, raw gjson.Result) bool {
		t := raw.Get("type").String()
		if t != "image" && t != "document" {
			return true
		}
		media := raw.Get(t)
		if !media.Exists() {
			return true
		}

		att := models.Attachment{
			MessageID:   raw.Get("id").String(),
			ChatID:      chatID,
			Type:        mediaKeys[t],
			FileName:    firstString(media, "file_name", "filename", "caption"),
			FileSize:    media.Get("file_size").Int(),
			MimeType:    media.Get("mime_type").String(),
			PreviewRef:  media.Get("preview").String(),
			DownloadRef: firstString(media, "link", "url"),
			PageCount:   int(media.Get("page_count").Int()),
			Timestamp:   raw.Get("timestamp").Int(),
		}
		if att.FileName == "" {
			att.FileName = "Unnamed"
		}
		attachments = append(attachments, att)
		return true
	})
	return attachments
}

func firstString(raw gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := raw.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
