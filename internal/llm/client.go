// ABOUTME: Generation-service client over the OpenAI chat API
// ABOUTME: Single-shot turn generation with a strict response-validation boundary; bounded-retry classification
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kokorohq/compass/internal/models"
	"github.com/kokorohq/compass/internal/util"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultChatModel is the default model for turn generation
const DefaultChatModel = "gpt-4o-mini"

// metaBlockPrefix marks the optional structured-metadata block a generation
// response may append after the reply text.
const metaBlockPrefix = "```meta"

// ClientConfig holds configuration for the generation client
type ClientConfig struct {
	APIKey     string
	ChatModel  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	chatModel := os.Getenv("COMPASS_OPENAI_MODEL")
	if chatModel == "" {
		chatModel = DefaultChatModel
	}

	return &ClientConfig{
		APIKey:     apiKey,
		ChatModel:  chatModel,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second * 2,
	}
}

// Client wraps the OpenAI API for turn generation and classification
type Client struct {
	client     *openai.Client
	chatModel  string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a generation client with the given API key
func NewClient(apiKey string) (*Client, error) {
	return NewClientWithConfig(DefaultConfig(apiKey))
}

// NewClientWithConfig creates a generation client with custom configuration
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	return &Client{
		client:     openai.NewClient(config.APIKey),
		chatModel:  config.ChatModel,
		timeout:    config.Timeout,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
	}, nil
}

// GenerateTurn makes ONE bounded chat-completion call for the next agent
// turn. No retries here: on failure the orchestrator falls back to the
// emergency responder rather than blocking the user.
func (c *Client) GenerateTurn(ctx context.Context, messages []models.HistoryMessage) (*models.GenerationReply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    toChatMessages(messages),
		Temperature: 0.7,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate turn: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	return parseReply(resp.Choices[0].Message.Content), nil
}

// ExtractClassification derives q/depth/phase and intent fields from
// conversation text, with bounded retries since this call is off the
// user-facing reply path.
func (c *Client) ExtractClassification(text string) (*models.GenerationMeta, error) {
	systemPrompt := `You are a conversation-state classifier. Given a user's message, classify:
- q: one of Q1, Q2, Q3, Q4, Q5
- depth: a stage label such as S1, S2, I1, I2
- phase: "inner" or "outer"
- intent_band, direction, focus_layer, core_need: short free-form labels
- confident: true only if the message gives enough signal

Return ONLY a JSON object with these fields. No additional text.`

	userPrompt := fmt.Sprintf("Classify this message:\n\n%s", text)

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(util.CalculateBackoff(c.retryDelay, attempt))
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)

		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature: 0.2,
		})
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("attempt %d: no completion choices returned", attempt+1)
			continue
		}

		meta, err := decodeMeta(resp.Choices[0].Message.Content)
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		return meta, nil
	}

	return nil, fmt.Errorf("failed to extract classification after %d attempts: %w", c.maxRetries+1, lastErr)
}

// parseReply validates loose service output into the strict internal reply
// shape. An optional trailing metadata block is decoded; on any shape
// mismatch the metadata is dropped, never propagated loosely.
func parseReply(content string) *models.GenerationReply {
	text := strings.TrimSpace(content)
	reply := &models.GenerationReply{Text: text}

	idx := strings.LastIndex(text, metaBlockPrefix)
	if idx < 0 {
		return reply
	}

	block := text[idx+len(metaBlockPrefix):]
	if end := strings.Index(block, "```"); end >= 0 {
		block = block[:end]
	}

	meta, err := decodeMeta(block)
	if err != nil {
		return reply
	}

	reply.Text = strings.TrimSpace(text[:idx])
	reply.Meta = meta
	reply.Extra = decodeExtraFields(block)
	return reply
}

// decodeExtraFields keeps the raw metadata fields as an untyped map so
// evidence extractors can read shapes the strict decoding drops
func decodeExtraFields(raw string) map[string]interface{} {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var extra map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &extra); err != nil {
		return nil
	}
	return extra
}

// decodeMeta parses and validates a structured-metadata JSON payload
func decodeMeta(raw string) (*models.GenerationMeta, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var meta models.GenerationMeta
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}

	// Reject unknown tag values at the boundary rather than inventing them
	if meta.Q != "" && !meta.Q.IsValid() {
		return nil, fmt.Errorf("unknown q code %q", meta.Q)
	}
	if meta.Phase != "" && !meta.Phase.IsValid() {
		return nil, fmt.Errorf("unknown phase %q", meta.Phase)
	}
	return &meta, nil
}

func toChatMessages(messages []models.HistoryMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}
