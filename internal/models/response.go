package models

// Answer is the decoded result of a chat query
type Answer struct {
	Text           string
	MessageID      string
	ConversationID string
}
