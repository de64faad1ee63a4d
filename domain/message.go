// Package domain contains core concepts of the messaging subsystem.
// This file defines Message entities and derived Conversation views.
// Messages are immutable once created; only the read state may transition.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a persistent point-to-point chat record.
// Sender, recipient, content and creation time never change after creation.
// Read and ReadAt transition false->true exactly once, never back.
type Message struct {
	ID          uuid.UUID  `json:"id"`
	SenderID    string     `json:"senderId"`
	RecipientID string     `json:"recipientId"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"createdAt"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"readAt"`
}

// Conversation is a derived view, recomputed on demand and never stored:
// one per partner an identity has exchanged at least one message with.
type Conversation struct {
	PartnerID   string  `json:"partnerId"`
	LastMessage Message `json:"lastMessage"`
	UnreadCount int     `json:"unreadCount"`
}
