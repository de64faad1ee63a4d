package domain

import "time"

// SendMessageCommand is a sending intent entering the dispatch pipeline,
// from either the live connection or the request/response fallback.
type SendMessageCommand struct {
	SenderID    string
	RecipientID string
	Content     string
	CreatedAt   time.Time
}

// HistoryCommand requests the paged message history between two identities.
// A nil cursor asks for the most recent page.
type HistoryCommand struct {
	UserID    string
	PartnerID string
	Cursor    *string
}
