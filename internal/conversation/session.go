package conversation

import (
	"context"
	"errors"
	"strings"
)

const (
	chatClientNotConfiguredMessageConstant = "chat client not configured"
	emptyUserMessageConstant               = "user message is empty"
)

var (
	// ErrChatClientNotConfigured indicates the session was constructed without a chat client.
	ErrChatClientNotConfigured = errors.New(chatClientNotConfiguredMessageConstant)
	// ErrEmptyUserMessage indicates Send was called with no content.
	ErrEmptyUserMessage = errors.New(emptyUserMessageConstant)
)

// SessionOptions configures conversation session behavior.
// MaxRetainedTurns bounds the history sent with each request; zero keeps every turn.
type SessionOptions struct {
	SystemPrompt     string
	MaxTokens        int64
	Temperature      float64
	MaxRetainedTurns int
}

// Session maintains an append-only conversation history over a ChatClient.
// A failed exchange leaves the history untouched.
type Session struct {
	chatClient ChatClient
	options    SessionOptions
	history    []Message
}

// NewSession constructs a Session for the provided chat client.
func NewSession(chatClient ChatClient, options SessionOptions) (*Session, error) {
	if chatClient == nil {
		return nil, ErrChatClientNotConfigured
	}
	return &Session{chatClient: chatClient, options: options}, nil
}

// SetSystemPrompt replaces the system prompt used for subsequent exchanges.
func (session *Session) SetSystemPrompt(systemPrompt string) {
	session.options.SystemPrompt = systemPrompt
}

// History returns a copy of the retained conversation turns.
func (session *Session) History() []Message {
	historyCopy := make([]Message, len(session.history))
	copy(historyCopy, session.history)
	return historyCopy
}

// Send submits a user message together with the retained history and returns the
// assistant reply. Both turns are appended to the history only when the exchange
// succeeds.
func (session *Session) Send(executionContext context.Context, userMessage string) (string, error) {
	if len(strings.TrimSpace(userMessage)) == 0 {
		return "", ErrEmptyUserMessage
	}

	requestMessages := make([]Message, 0, len(session.history)+1)
	requestMessages = append(requestMessages, session.retainedHistory()...)
	requestMessages = append(requestMessages, Message{Role: MessageRoleUser, Content: userMessage})

	chatRequest := ChatRequest{
		SystemPrompt: session.options.SystemPrompt,
		Messages:     requestMessages,
		MaxTokens:    session.options.MaxTokens,
		Temperature:  session.options.Temperature,
	}

	assistantReply, completionError := session.chatClient.Complete(executionContext, chatRequest)
	if completionError != nil {
		return "", completionError
	}

	session.history = append(session.history,
		Message{Role: MessageRoleUser, Content: userMessage},
		Message{Role: MessageRoleAssistant, Content: assistantReply},
	)
	return assistantReply, nil
}

func (session *Session) retainedHistory() []Message {
	if session.options.MaxRetainedTurns <= 0 {
		return session.history
	}
	retainedMessageCount := session.options.MaxRetainedTurns * 2
	if len(session.history) <= retainedMessageCount {
		return session.history
	}
	return session.history[len(session.history)-retainedMessageCount:]
}
