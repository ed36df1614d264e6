// Package messaging delivers follow-up and alert messages to session owners.
//
// The Twilio-backed notifier sends SMS; the log notifier is the default when
// no SMS credentials are configured.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// PhoneResolver maps a session ID to the owner's phone number. The second
// return reports whether a number is known.
type PhoneResolver func(sessionID string) (string, bool)

// Opts holds configuration options for the Twilio notifier.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string
	Resolver   PhoneResolver
}

// Option defines a configuration option for the Twilio notifier.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFrom sets the sending phone number.
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// WithPhoneResolver sets how session IDs map to phone numbers.
func WithPhoneResolver(r PhoneResolver) Option {
	return func(o *Opts) { o.Resolver = r }
}

// messageCreator is the slice of the Twilio REST API the notifier uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioNotifier delivers messages over SMS via the Twilio API.
type TwilioNotifier struct {
	api      messageCreator
	from     string
	resolver PhoneResolver
}

// NewTwilioNotifier creates an SMS notifier. Credentials fall back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_FROM_NUMBER environment
// variables.
func NewTwilioNotifier(opts ...Option) (*TwilioNotifier, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio notifier config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"From_set", cfg.From != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("from number must be provided")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("phone resolver must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioNotifier{api: client.Api, from: cfg.From, resolver: cfg.Resolver}, nil
}

// Notify sends the message to the session owner's phone. Sessions without a
// known phone number are skipped with a warning rather than failing the
// trigger.
func (n *TwilioNotifier) Notify(ctx context.Context, sessionID, message string) error {
	to, ok := n.resolver(sessionID)
	if !ok {
		slog.Warn("No phone number for session, skipping delivery", "sessionID", sessionID)
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(n.from)
	params.SetBody(message)

	if _, err := n.api.CreateMessage(params); err != nil {
		slog.Error("Twilio Notify failed", "sessionID", sessionID, "error", err)
		return fmt.Errorf("failed to send message for session %s: %w", sessionID, err)
	}
	slog.Debug("Twilio message sent", "sessionID", sessionID)
	return nil
}

// LogNotifier writes deliveries to the structured log. It is the default
// notifier when SMS is not configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs the message instead of delivering it.
func (n *LogNotifier) Notify(ctx context.Context, sessionID, message string) error {
	slog.Info("Follow-up delivery (log only)", "sessionID", sessionID, "message", message)
	return nil
}

// InMemoryNotifier records deliveries for inspection. Chat frontends poll it
// for messages addressed to their session.
type InMemoryNotifier struct {
	mu       sync.Mutex
	messages map[string][]string
}

// NewInMemoryNotifier creates an empty in-memory notifier.
func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{messages: make(map[string][]string)}
}

// Notify records the message for the session.
func (n *InMemoryNotifier) Notify(ctx context.Context, sessionID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages[sessionID] = append(n.messages[sessionID], message)
	return nil
}

// Drain returns and clears the session's recorded messages.
func (n *InMemoryNotifier) Drain(sessionID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.messages[sessionID]
	delete(n.messages, sessionID)
	return out
}
