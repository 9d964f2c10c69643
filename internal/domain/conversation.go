package domain

import "time"

type Conversation struct {
	ID         string
	ListingID  string
	LandlordID int64
	TenantID   int64
}

type Message struct {
	ID             string
	ConversationID string
	SenderID       int64
	Body           string
	CreatedAt      time.Time
}
