// Package flows calls a hosted language model to derive metadata overlays
// for a source video: an optimized tag list and a rewritten title and
// description. Overlays are additive; callers keep the original metadata
// alongside them.
package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/downytube/backend/internal/models"
)

// ErrFlowFailed indicates the model call failed or returned an unusable
// response.
var ErrFlowFailed = errors.New("flow failed")

const maxTags = 15

// CompletionFunc performs one chat completion. Tests substitute a fake.
type CompletionFunc func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)

// Client is a thin wrapper over the model API.
type Client struct {
	Model string

	Complete CompletionFunc
}

// NewClient builds a client against the given API endpoint. An empty baseURL
// uses the provider default.
func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	api := openai.NewClientWithConfig(cfg)
	return &Client{
		Model:    model,
		Complete: api.CreateChatCompletion,
	}
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

type rewriteResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// OptimizeTags returns a replacement tag list for the video, ordered by
// predicted search relevance. At most 15 tags come back.
func (c *Client) OptimizeTags(ctx context.Context, video models.SourceVideo) ([]string, error) {
	prompt := fmt.Sprintf(`You optimize YouTube video tags for search discoverability.

Title: %s
Description: %s
Current tags: %s

Return up to %d improved tags ordered from most to least relevant.
Output strictly as JSON without markdown code blocks: {"tags": ["tag1", "tag2"]}`,
		video.Title, video.Description, strings.Join(video.Tags, ", "), maxTags)

	var parsed tagsResponse
	if err := c.complete(ctx, prompt, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Tags) == 0 {
		return nil, fmt.Errorf("%w: model returned no tags", ErrFlowFailed)
	}
	if len(parsed.Tags) > maxTags {
		parsed.Tags = parsed.Tags[:maxTags]
	}
	return parsed.Tags, nil
}

// Rewrite returns a punchier title and description for the video. The title
// fits the hosting platform's 100 character limit.
func (c *Client) Rewrite(ctx context.Context, video models.SourceVideo) (title, description string, err error) {
	prompt := fmt.Sprintf(`You rewrite YouTube video metadata to improve click-through without clickbait.

Title: %s
Description: %s

Return a rewritten title (100 characters max) and description that keep the
original meaning. Output strictly as JSON without markdown code blocks:
{"title": "...", "description": "..."}`,
		video.Title, video.Description)

	var parsed rewriteResponse
	if err := c.complete(ctx, prompt, &parsed); err != nil {
		return "", "", err
	}
	if strings.TrimSpace(parsed.Title) == "" {
		return "", "", fmt.Errorf("%w: model returned an empty title", ErrFlowFailed)
	}
	return parsed.Title, parsed.Description, nil
}

func (c *Client) complete(ctx context.Context, prompt string, out any) error {
	resp, err := c.Complete(ctx, openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFlowFailed, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: empty completion", ErrFlowFailed)
	}

	raw := cleanJSONResponse(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: unparseable model response: %v", ErrFlowFailed, err)
	}
	return nil
}

// cleanJSONResponse strips a markdown code fence some models wrap around
// JSON output despite instructions.
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
