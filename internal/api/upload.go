package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/models"
)

const opUpload = "upload document"

// UploadDocument sends the document once and returns the context handle assigned by
// the server. On failure no server-side effect may be assumed.
func (c *Client) UploadDocument(ctx context.Context, doc *models.Document) (string, error) {
	if doc == nil {
		return "", apierrors.ErrEmptyDocument
	}

	reader, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer func() {
		_ = reader.Close()
	}()

	body, contentType, err := buildUploadBody(reader, doc, c.creds.User)
	if err != nil {
		return "", err
	}

	c.logger.Debug().
		Str("file", doc.Name).
		Int64("size", doc.Size).
		Msg("uploading document")

	respBody, err := c.post(ctx, opUpload, models.PathFilesUpload, contentType, body)
	if err != nil {
		return "", err
	}

	handle, err := parseUploadResponse(respBody, c.endpoint(models.PathFilesUpload))
	if err != nil {
		return "", err
	}

	c.logger.Debug().
		Str("id", handle).
		Str("name", gjson.Get(respBody, PathUploadName).String()).
		Msg("document uploaded")

	return handle, nil
}

// buildUploadBody creates the multipart body with the file and user fields
func buildUploadBody(reader io.Reader, doc *models.Document, user string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(doc.Name)))
	header.Set("Content-Type", doc.MIMEType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := io.Copy(part, reader); err != nil {
		return nil, "", fmt.Errorf("failed to write file data: %w", err)
	}

	if err := writer.WriteField("user", user); err != nil {
		return nil, "", fmt.Errorf("failed to write user field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	return &body, writer.FormDataContentType(), nil
}

func parseUploadResponse(body, endpoint string) (string, error) {
	if !gjson.Valid(body) {
		return "", apierrors.NewDecodeError(opUpload, endpoint, body, "response is not valid JSON")
	}

	id := gjson.Get(body, PathUploadID)
	if id.Type != gjson.String || strings.TrimSpace(id.String()) == "" {
		return "", apierrors.NewDecodeError(opUpload, endpoint, body, "response has no file id")
	}

	return id.String(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
