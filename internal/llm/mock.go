package llm

import (
	"context"
	"fmt"

	"github.com/cyberlab/helpdesk/internal/domain"
)

// MockClient is a configurable generation client for testing.
// Set the response fields to control what Generate returns.
type MockClient struct {
	GenerateResponse string
	GenerateError    error

	// Call tracking for assertions
	GenerateCalls []MockGenerateCall
}

// MockGenerateCall records the inputs of one Generate invocation.
type MockGenerateCall struct {
	Fragments   []domain.FragmentWithScore
	Role        domain.UserRole
	History     []domain.Turn
	UserMessage string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Generate(ctx context.Context, fragments []domain.FragmentWithScore, role domain.UserRole, history []domain.Turn, userMessage string) (string, error) {
	c.GenerateCalls = append(c.GenerateCalls, MockGenerateCall{
		Fragments:   fragments,
		Role:        role,
		History:     history,
		UserMessage: userMessage,
	})
	if c.GenerateError != nil {
		return "", c.GenerateError
	}
	if c.GenerateResponse != "" {
		return c.GenerateResponse, nil
	}
	// Default: a deterministic answer citing the first fragment's document
	if len(fragments) > 0 {
		return fmt.Sprintf("According to %s: %s", fragments[0].DocumentID, fragments[0].Text), nil
	}
	return "This issue is not covered in the knowledge base.", nil
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.GenerateResponse = ""
	c.GenerateError = nil
	c.GenerateCalls = nil
}
