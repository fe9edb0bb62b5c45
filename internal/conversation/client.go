package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	messageRoleUserConstant            = MessageRole("user")
	messageRoleAssistantConstant       = MessageRole("assistant")
	textContentBlockTypeConstant       = "text"
	apiKeyMissingMessageConstant       = "anthropic api key not provided"
	modelMissingMessageConstant        = "model identifier not provided"
	emptyReplyMessageConstant          = "model reply contained no text content"
	unknownRoleMessageTemplateConstant = "unsupported message role %q"
	completionErrorTemplateConstant    = "requesting completion: %w"
	defaultMaxTokensConstant           = int64(8192)
)

// MessageRole identifies the author of a conversation turn.
type MessageRole string

// Supported message roles.
const (
	MessageRoleUser      = messageRoleUserConstant
	MessageRoleAssistant = messageRoleAssistantConstant
)

// Message represents a single conversation turn.
type Message struct {
	Role    MessageRole
	Content string
}

// ChatRequest describes a single completion request.
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int64
	Temperature  float64
}

// ChatClient produces assistant replies for conversation requests.
type ChatClient interface {
	Complete(executionContext context.Context, request ChatRequest) (string, error)
}

var (
	// ErrAPIKeyMissing indicates the Anthropic API key was not provided.
	ErrAPIKeyMissing = errors.New(apiKeyMissingMessageConstant)
	// ErrModelMissing indicates no model identifier was provided.
	ErrModelMissing = errors.New(modelMissingMessageConstant)
	// ErrEmptyReply indicates the model produced no textual content.
	ErrEmptyReply = errors.New(emptyReplyMessageConstant)
)

// AnthropicClient implements ChatClient against the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient constructs an AnthropicClient for the given API key and model.
func NewAnthropicClient(apiKey string, modelIdentifier string) (*AnthropicClient, error) {
	trimmedAPIKey := strings.TrimSpace(apiKey)
	if len(trimmedAPIKey) == 0 {
		return nil, ErrAPIKeyMissing
	}
	trimmedModel := strings.TrimSpace(modelIdentifier)
	if len(trimmedModel) == 0 {
		return nil, ErrModelMissing
	}

	client := anthropic.NewClient(option.WithAPIKey(trimmedAPIKey))
	return &AnthropicClient{client: client, model: anthropic.Model(trimmedModel)}, nil
}

// Complete sends the conversation to the Messages API and returns the text reply.
func (anthropicClient *AnthropicClient) Complete(executionContext context.Context, request ChatRequest) (string, error) {
	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokensConstant
	}

	messageParams := make([]anthropic.MessageParam, 0, len(request.Messages))
	for _, conversationMessage := range request.Messages {
		switch conversationMessage.Role {
		case MessageRoleUser:
			messageParams = append(messageParams, anthropic.NewUserMessage(anthropic.NewTextBlock(conversationMessage.Content)))
		case MessageRoleAssistant:
			messageParams = append(messageParams, anthropic.NewAssistantMessage(anthropic.NewTextBlock(conversationMessage.Content)))
		default:
			return "", fmt.Errorf(unknownRoleMessageTemplateConstant, conversationMessage.Role)
		}
	}

	completionParams := anthropic.MessageNewParams{
		Model:     anthropicClient.model,
		MaxTokens: maxTokens,
		Messages:  messageParams,
	}
	if len(strings.TrimSpace(request.SystemPrompt)) > 0 {
		completionParams.System = []anthropic.TextBlockParam{{Text: request.SystemPrompt}}
	}
	if request.Temperature > 0 {
		completionParams.Temperature = anthropic.Float(request.Temperature)
	}

	completionMessage, completionError := anthropicClient.client.Messages.New(executionContext, completionParams)
	if completionError != nil {
		return "", fmt.Errorf(completionErrorTemplateConstant, completionError)
	}

	var replyBuilder strings.Builder
	for _, contentBlock := range completionMessage.Content {
		if contentBlock.Type == textContentBlockTypeConstant {
			replyBuilder.WriteString(contentBlock.Text)
		}
	}

	replyText := replyBuilder.String()
	if len(strings.TrimSpace(replyText)) == 0 {
		return "", ErrEmptyReply
	}
	return replyText, nil
}
