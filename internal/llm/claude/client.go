// Package claude implements the analysis LLM provider on the Anthropic API.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/go-core/log"
)

const responseTokens = 4096

// Client sends JSON-constrained completion requests to Claude.
type Client struct {
	sdk    anthropic.Client
	model  string
	logger log.Logger
}

// New creates a Claude client for the given API key and model name.
// Extra options are mostly for tests (base URL overrides).
func New(apiKey, model string, logger log.Logger, opts ...option.RequestOption) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		sdk:    anthropic.NewClient(opts...),
		model:  model,
		logger: logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// CompleteJSON sends a single-turn request and returns the JSON object
// extracted from the model's reply. The prompts instruct the model to
// answer with strict JSON; extraction is forgiving about code fences
// and surrounding chatter anyway.
func (c *Client) CompleteJSON(ctx context.Context, system, prompt string) (json.RawMessage, error) {
	start := time.Now()

	msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: responseTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude call: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	c.logger.Info(ctx, "llm response",
		"model", c.model,
		"stop_reason", string(msg.StopReason),
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
		"duration", time.Since(start).Seconds(),
	)

	obj, err := ExtractJSONObject(text.String())
	if err != nil {
		return nil, fmt.Errorf("claude reply: %w", err)
	}
	return obj, nil
}

var (
	fenceOpenRe   = regexp.MustCompile("^```[a-zA-Z0-9_-]*\\s*")
	fenceCloseRe  = regexp.MustCompile("\\s*```$")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSONObject pulls the first top-level JSON object out of model
// output, stripping code fences and tolerating surrounding chatter and
// trailing commas.
func ExtractJSONObject(text string) (json.RawMessage, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil, fmt.Errorf("empty completion")
	}

	if strings.HasPrefix(t, "```") {
		t = fenceOpenRe.ReplaceAllString(t, "")
		t = fenceCloseRe.ReplaceAllString(strings.TrimSpace(t), "")
	}
	if strings.HasPrefix(strings.ToLower(t), "json") {
		t = strings.TrimSpace(t[4:])
	}

	if json.Valid([]byte(t)) {
		return json.RawMessage(t), nil
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found")
	}
	candidate := t[start : end+1]

	if json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), nil
	}

	fixed := trailingComma.ReplaceAllString(candidate, "$1")
	if json.Valid([]byte(fixed)) {
		return json.RawMessage(fixed), nil
	}
	return nil, fmt.Errorf("malformed JSON object in completion")
}
