package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatorChatIDTag(t *testing.T) {
	type payload struct {
		ChatID string `json:"chat_id" validate:"required,chatid"`
	}

	v := NewValidator()

	tests := []struct {
		name    string
		chatID  string
		wantErr bool
	}{
		{"individual chat", "12345@s.whatsapp.net", false},
		{"group chat", "67890-group@g.us", false},
		{"missing suffix", "12345", true},
		{"wrong domain", "12345@broadcast", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&payload{ChatID: tt.chatID})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatorUsesJSONFieldNames(t *testing.T) {
	type payload struct {
		Emoji string `json:"emoji" validate:"required"`
	}

	err := NewValidator().Validate(&payload{})
	assert.ErrorContains(t, err, "emoji")
}
