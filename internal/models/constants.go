// Package models contains data types and constants for the document chat client.
package models

// Default remote endpoint and request paths
const (
	DefaultBaseURL   = "https://api.dify.ai/v1"
	PathFilesUpload  = "/files/upload"
	PathChatMessages = "/chat-messages"
)

// Fixed values of the remote request contract
const (
	// DefaultUser is the end-user identifier sent with every request
	DefaultUser = "default_user_1"

	// DocumentInputKey is the workflow input that receives the uploaded document
	DocumentInputKey = "doc"

	ResponseModeBlocking    = "blocking"
	TransferMethodLocalFile = "local_file"
	FileTypeDocument        = "document"
)

// Display text used by the session
const (
	// UploadPlaceholderText stands in for the query when a turn carries only a file
	UploadPlaceholderText = "Uploaded a document for analysis."

	// ActiveContextLabel badges a turn that reuses an already uploaded document
	ActiveContextLabel = "Active Context"
)

// DefaultHeaders returns the headers shared by every API request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
		"User-Agent":      "docchat/0.1 (+https://github.com/diogo/docchat)",
	}
}
