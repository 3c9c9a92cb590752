package api

import (
	"context"
	"sync"

	"github.com/diogo/docchat/internal/models"
)

// MockService is a scripted implementation of AnalysisService for testing
type MockService struct {
	// Mock return values
	UploadHandle string
	UploadErr    error
	AnswerText   string
	QueryErr     error

	// Started, when set, receives "upload" or "query" as each call begins.
	Started chan string
	// Gate, when set, holds every call until a value is sent or the channel is closed.
	Gate chan struct{}

	mu      sync.Mutex
	uploads []*models.Document
	queries []Query
}

var _ AnalysisService = (*MockService)(nil)

func (m *MockService) UploadDocument(ctx context.Context, doc *models.Document) (string, error) {
	m.mu.Lock()
	m.uploads = append(m.uploads, doc)
	m.mu.Unlock()

	m.wait("upload")

	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	return m.UploadHandle, nil
}

func (m *MockService) SubmitQuery(ctx context.Context, query Query) (*models.Answer, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	m.wait("query")

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return &models.Answer{Text: m.AnswerText}, nil
}

func (m *MockService) wait(call string) {
	if m.Started != nil {
		m.Started <- call
	}
	if m.Gate != nil {
		<-m.Gate
	}
}

// Uploads returns the documents passed to UploadDocument, in call order
func (m *MockService) Uploads() []*models.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Document, len(m.uploads))
	copy(out, m.uploads)
	return out
}

// Queries returns the queries passed to SubmitQuery, in call order
func (m *MockService) Queries() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Query, len(m.queries))
	copy(out, m.queries)
	return out
}
