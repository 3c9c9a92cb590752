// Package api provides the document chat API client implementation.
package api

// GJSON paths for extracting values from API responses.
const (
	// Upload response
	PathUploadID   = "id"
	PathUploadName = "name"

	// Chat response (blocking mode)
	PathAnswer         = "answer"
	PathMessageID      = "message_id"
	PathConversationID = "conversation_id"
)
