package models

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	apierrors "github.com/diogo/docchat/internal/errors"
)

const (
	MaxDocumentSize = 15 * 1024 * 1024 // 15MB
)

// SupportedDocumentExtensions returns the document types accepted by the upload endpoint
func SupportedDocumentExtensions() []string {
	return []string{
		".txt", ".md", ".markdown", ".pdf", ".html", ".xlsx", ".xls",
		".docx", ".csv", ".eml", ".msg", ".pptx", ".ppt", ".xml", ".epub",
	}
}

// Document is a file chosen by the user for upload. Either Path or Data holds the content.
type Document struct {
	Name     string
	Path     string
	MIMEType string
	Size     int64
	Data     []byte
}

// NewDocumentFromPath validates a file on disk and returns a reference to it
func NewDocumentFromPath(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	name := filepath.Base(path)
	if err := validateDocument(name, info.Size()); err != nil {
		return nil, err
	}

	return &Document{
		Name:     name,
		Path:     path,
		MIMEType: detectMIMEType(name),
		Size:     info.Size(),
	}, nil
}

// NewDocumentFromBytes builds an in-memory document
func NewDocumentFromBytes(name string, data []byte) (*Document, error) {
	if err := validateDocument(name, int64(len(data))); err != nil {
		return nil, err
	}
	return &Document{
		Name:     name,
		MIMEType: detectMIMEType(name),
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}

// Open returns a reader over the document content
func (d *Document) Open() (io.ReadCloser, error) {
	if d.Data != nil {
		return io.NopCloser(bytes.NewReader(d.Data)), nil
	}
	if d.Path == "" {
		return nil, apierrors.ErrEmptyDocument
	}
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// IsSupportedDocument reports whether the file name has an accepted extension
func IsSupportedDocument(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range SupportedDocumentExtensions() {
		if ext == supported {
			return true
		}
	}
	return false
}

func validateDocument(name string, size int64) error {
	if size == 0 {
		return fmt.Errorf("%s: %w", name, apierrors.ErrEmptyDocument)
	}
	if size > MaxDocumentSize {
		return fmt.Errorf("%s: %w (max %d bytes)", name, apierrors.ErrDocumentTooLarge, MaxDocumentSize)
	}
	if !IsSupportedDocument(name) {
		return fmt.Errorf("%s: %w", name, apierrors.ErrUnsupportedDocument)
	}
	return nil
}

func detectMIMEType(name string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
