package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/models"
)

const opQuery = "submit query"

// Query is a text question, optionally bound to the handle of an uploaded document
type Query struct {
	Text          string
	ContextHandle string // empty when the query runs without document grounding
}

// Grounded reports whether the query is bound to a document
func (q Query) Grounded() bool {
	return q.ContextHandle != ""
}

// fileReference names an uploaded document as a local-file input
type fileReference struct {
	Type           string `json:"type"`
	TransferMethod string `json:"transfer_method"`
	UploadFileID   string `json:"upload_file_id"`
}

// chatRequest is the body of a query without a document
type chatRequest struct {
	Inputs       struct{} `json:"inputs"`
	Query        string   `json:"query"`
	User         string   `json:"user"`
	ResponseMode string   `json:"response_mode"`
}

// groundedChatRequest is the body of a query bound to a document. The reference is
// sent both as the workflow input and in the files list.
type groundedChatRequest struct {
	Inputs       map[string]fileReference `json:"inputs"`
	Query        string                   `json:"query"`
	User         string                   `json:"user"`
	ResponseMode string                   `json:"response_mode"`
	Files        []fileReference          `json:"files"`
}

// buildChatPayload returns the request body for q
func buildChatPayload(q Query, user string) any {
	if !q.Grounded() {
		return chatRequest{
			Query:        q.Text,
			User:         user,
			ResponseMode: models.ResponseModeBlocking,
		}
	}

	ref := fileReference{
		Type:           models.FileTypeDocument,
		TransferMethod: models.TransferMethodLocalFile,
		UploadFileID:   q.ContextHandle,
	}

	return groundedChatRequest{
		Inputs:       map[string]fileReference{models.DocumentInputKey: ref},
		Query:        q.Text,
		User:         user,
		ResponseMode: models.ResponseModeBlocking,
		Files:        []fileReference{ref},
	}
}

// SubmitQuery sends a query and returns the assistant's answer
func (c *Client) SubmitQuery(ctx context.Context, q Query) (*models.Answer, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	payload, err := json.Marshal(buildChatPayload(q, c.creds.User))
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}

	c.logger.Debug().
		Bool("grounded", q.Grounded()).
		Int("chars", len(q.Text)).
		Msg("submitting query")

	body, err := c.post(ctx, opQuery, models.PathChatMessages, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	return parseAnswer(body, c.endpoint(models.PathChatMessages))
}

func parseAnswer(body, endpoint string) (*models.Answer, error) {
	if !gjson.Valid(body) {
		return nil, apierrors.NewDecodeError(opQuery, endpoint, body, "response is not valid JSON")
	}

	result := gjson.GetMany(body, PathAnswer, PathMessageID, PathConversationID)
	if result[0].Type != gjson.String {
		return nil, apierrors.NewDecodeError(opQuery, endpoint, body, "response has no answer")
	}

	return &models.Answer{
		Text:           result[0].String(),
		MessageID:      result[1].String(),
		ConversationID: result[2].String(),
	}, nil
}
