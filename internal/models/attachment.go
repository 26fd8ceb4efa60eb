package models

// Attachment is a media view projected from a Message with type image or
// document. It is never stored on its own.
type Attachment struct {
	MessageID   string      `json:"message_id"`
	ChatID      string      `json:"chat_id"`
	ChatName    string      `json:"chat_name,omitempty"`
	Type        MessageType `json:"type"`
	FileName    string      `json:"file_name"`
	FileSize    int64       `json:"file_size"`
	MimeType    string      `json:"mime_type,omitempty"`
	PreviewRef  string      `json:"preview_ref,omitempty"`
	DownloadRef string      `json:"download_ref,omitempty"`
	PageCount   int         `json:"page_count,omitempty"`
	Timestamp   int64       `json:"timestamp"`
}

// DedupKey identifies an attachment for aggregation purposes. The gateway
// exposes no stable content hash, so (file name, file size) is the best
// available identity. Known heuristic: distinct files can collide and a
// renamed re-upload will not.
type DedupKey struct {
	FileName string
	FileSize int64
}

// Key returns the aggregation identity of the attachment.
func (a Attachment) Key() DedupKey {
	return DedupKey{FileName: a.FileName, FileSize: a.FileSize}
}

// MediaAggregate is the deduplicated media set gathered across an
// organization's chats, together with the chats that could not be read.
type MediaAggregate struct {
	OrgID         string       `json:"org_id"`
	Items         []Attachment `json:"items"`
	FailedChatIDs []string     `json:"failed_chat_ids,omitempty"`
}
