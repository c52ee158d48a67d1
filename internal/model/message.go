package model

import (
	"strconv"
	"time"
)

// Conversation identifies a chat thread in the message database.
type Conversation struct {
	GUID    string `json:"guid"`
	LocalID int64  `json:"local_id"`
	Title   string `json:"title,omitempty"`
	IsGroup bool   `json:"is_group"`
}

// Key returns the GUID, or the local id when the GUID is unset.
func (c Conversation) Key() string {
	if c.GUID != "" {
		return c.GUID
	}
	return "local-" + strconv.FormatInt(c.LocalID, 10)
}

// Message is a single text message within a conversation.
type Message struct {
	ID               int64     `json:"id"`
	ConversationGUID string    `json:"conversation_guid"`
	Sender           string    `json:"sender,omitempty"`
	Text             string    `json:"text"`
	Date             time.Time `json:"date"`
	Outgoing         bool      `json:"outgoing"`
}

// TwoFACode is a one-time code detected in an incoming message.
type TwoFACode struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Service     string    `json:"service"`
	PhoneNumber string    `json:"phone_number"`
	MessageText string    `json:"message_text"`
	Timestamp   time.Time `json:"timestamp"`
	Used        bool      `json:"used"`
}
