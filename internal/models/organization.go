package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization is a named grouping of chat identifiers. ChatIDs carries no
// ordering significance and membership is idempotent.
type Organization struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name" validate:"required"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	ChatIDs     []string           `bson:"chat_ids" json:"chat_ids"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// HasChat reports whether the chat identifier is a member.
func (o *Organization) HasChat(chatID string) bool {
	for _, id := range o.ChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}
