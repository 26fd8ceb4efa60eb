package models

import "strings"

const (
	groupChatSuffix      = "@g.us"
	individualChatSuffix = "@s.whatsapp.net"
)

// IsGroupChat reports whether the gateway identifier names a group thread.
// The gateway encodes the distinction in the identifier suffix.
func IsGroupChat(chatID string) bool {
	return strings.HasSuffix(chatID, groupChatSuffix)
}

// ChatDisplayName synthesizes a best-effort human name from a bare chat
// identifier, used when chat metadata is unavailable.
func ChatDisplayName(chatID string) string {
	prefix, _, _ := strings.Cut(chatID, "@")
	if IsGroupChat(chatID) {
		return "Group " + prefix
	}
	return "Chat " + prefix
}
