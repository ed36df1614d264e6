package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/carecover/carecover/internal/models"
)

// The real completion service must keep satisfying chatService through its
// pointer receiver.
var _ chatService = (*openai.ChatCompletionService)(nil)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   *openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.params = params
	return m.resp, m.err
}

func TestGenerateReply_Success(t *testing.T) {
	mockResp := &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "Your plan covers 80% at panel hospitals."}},
		},
	}
	client := &Client{chat: &mockChatService{resp: mockResp}, model: openai.ChatModelGPT4oMini}

	out, err := client.GenerateReply(context.Background(), "what does my plan cover?", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Your plan covers 80% at panel hospitals." {
		t.Errorf("unexpected reply: %q", out)
	}
}

func TestGenerateReply_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}, model: openai.ChatModelGPT4oMini}

	_, err := client.GenerateReply(context.Background(), "hello", nil)
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerateReply_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: &openai.ChatCompletion{}}, model: openai.ChatModelGPT4oMini}

	_, err := client.GenerateReply(context.Background(), "hello", nil)
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestGenerateReply_DocumentContext(t *testing.T) {
	mock := &mockChatService{resp: &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
	}}
	client := &Client{chat: mock, model: openai.ChatModelGPT4oMini}

	docs := []models.ExtractedDocument{{
		FileName: "policy.pdf",
		Category: models.DocumentInsurance,
		Summary:  "80% coverage with $100 deductible",
	}}
	if _, err := client.GenerateReply(context.Background(), "hello", docs); err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}

	if len(mock.params.Messages) != 2 {
		t.Fatalf("messages = %d, want system + user", len(mock.params.Messages))
	}
	system := mock.params.Messages[0].OfSystem.Content.OfString.Value
	if !strings.Contains(system, "policy.pdf") || !strings.Contains(system, "80% coverage") {
		t.Errorf("system prompt missing document context: %q", system)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Error("expected client instance, got nil")
	}
}
