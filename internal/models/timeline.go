package models

// Timeline is the materialized in-memory view of one open chat: messages in
// display order plus transcription results joined by message id. At most one
// timeline is active per client session.
type Timeline struct {
	ChatID      string                         `json:"chat_id"`
	Messages    []Message                      `json:"messages"`
	Transcripts map[string]TranscriptionResult `json:"transcripts,omitempty"`
	// Degraded is set when the chat opened without a live event
	// subscription; history works, live updates do not.
	Degraded bool `json:"degraded,omitempty"`
}
