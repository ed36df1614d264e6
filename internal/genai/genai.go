// Package genai provides GenAI-enhanced chat replies using the OpenAI API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/carecover/carecover/internal/models"
)

// ErrNoChoicesReturned indicates the completion came back empty.
var ErrNoChoicesReturned = errors.New("no choices returned")

// systemPrompt frames every conversation. Document context is appended when
// the session has uploaded policies or records.
const systemPrompt = "You are CareCover, a Singapore health-insurance assistant. " +
	"Help the user understand their coverage, find suitable care, and prepare for treatment. " +
	"Be concise and factual. Never give a medical diagnosis; direct urgent cases to emergency services."

// chatService defines the minimal interface for chat completions.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey string
	Model  string
}

// Option configures the client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat  chatService
	model string
}

// NewClient initializes a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	cli := openai.NewClient(option.WithAPIKey(apiKey))
	slog.Debug("GenAI client created", "model", model)
	return &Client{chat: &cli.Chat.Completions, model: model}, nil
}

// GenerateReply produces an assistant reply to the user's message, grounded
// in the session's uploaded documents.
func (c *Client) GenerateReply(ctx context.Context, userMessage string, documents []models.ExtractedDocument) (string, error) {
	slog.Debug("GenAI GenerateReply", "messageLength", len(userMessage), "documents", len(documents))

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildSystemPrompt(documents)),
			openai.UserMessage(userMessage),
		},
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		slog.Error("GenAI completion failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// buildSystemPrompt appends document context to the base prompt.
func buildSystemPrompt(documents []models.ExtractedDocument) string {
	if len(documents) == 0 {
		return systemPrompt
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nThe user has uploaded the following documents:\n")
	for _, doc := range documents {
		fmt.Fprintf(&b, "- %s (%s)", doc.FileName, doc.Category)
		if doc.Summary != "" {
			fmt.Fprintf(&b, ": %s", doc.Summary)
		} else if len(doc.KeyPoints) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(doc.KeyPoints, "; "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
