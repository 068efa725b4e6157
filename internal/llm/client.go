package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrEmptyResponse is returned when the model returns no choices.
	ErrEmptyResponse = errors.New("llm returned no choices")
	// ErrInvalidResponse is returned when the model output is not the expected JSON.
	ErrInvalidResponse = errors.New("llm returned malformed task list")
)

const extractTasksPrompt = `You turn a spoken or typed note into actionable tasks.
Today is %s.
Reply with a JSON object of the form {"tasks": [...]} where each task has:
  "title": short imperative summary (required),
  "description": extra detail or "",
  "dueDate": ISO date YYYY-MM-DD resolved against today, or "" if none was mentioned,
  "priority": one of "low", "medium", "high",
  "category": a single lowercase word such as work, personal, health, errands.
If the note contains no tasks, reply {"tasks": []}.`

// Client extracts tasks from free text via an OpenAI compatible chat completions API.
type Client struct {
	Model  string
	client *openai.Client
	now    func() time.Time
}

// NewClient creates a new LLM client. An empty baseURL uses the OpenAI default.
func NewClient(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		Model:  model,
		client: openai.NewClientWithConfig(cfg),
		now:    time.Now,
	}
}

// ExtractTasks asks the model for the tasks contained in text.
func (c *Client) ExtractTasks(ctx context.Context, text string) ([]ExtractedTask, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(extractTasksPrompt, c.now().Format(time.DateOnly)),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return parseTasks(resp.Choices[0].Message.Content)
}

func parseTasks(content string) ([]ExtractedTask, error) {
	content = strings.TrimSpace(content)
	// Some compatible servers wrap JSON output in a markdown fence.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var out taskList
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	tasks := make([]ExtractedTask, 0, len(out.Tasks))
	for _, t := range out.Tasks {
		t.Title = strings.TrimSpace(t.Title)
		if t.Title == "" {
			continue
		}
		t.Priority = NormalizePriority(t.Priority)
		t.Category = strings.ToLower(strings.TrimSpace(t.Category))
		tasks = append(tasks, t)
	}
	return tasks, nil
}
