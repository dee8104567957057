package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// TaskGenerator turns free text into draft tasks.
type TaskGenerator interface {
	GenerateTasksFromText(ctx context.Context, projectTitle, text string) ([]GeneratedTask, error)
}

// AIService drafts tasks with the OpenAI chat API.
type AIService struct {
	client *openai.Client
	model  string
}

type GeneratedTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
	}
}

// GenerateTasksFromText analyzes text and extracts tasks using OpenAI GPT
func (s *AIService) GenerateTasksFromText(ctx context.Context, projectTitle, text string) ([]GeneratedTask, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	currentTime := time.Now().Format(time.RFC3339)
	prompt := fmt.Sprintf(`You extract actionable tasks for the project %q from the text below.

Current time: %s

Text:
%s

Reply with a JSON array of tasks in this shape:
[
  {
    "title": "short task title",
    "description": "what needs to be done",
    "priority": "Low, Medium or High",
    "due_date": "deadline in ISO8601, e.g. 2025-10-28T23:59:59Z, or null when none is stated"
  }
]

Rules:
- Return [] when the text contains no tasks
- Convert relative deadlines such as "tomorrow" or "next week" into absolute timestamps
- due_date must be an ISO8601 string or null
- Return only JSON, no prose`, projectTitle, currentTime, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return parseGeneratedTasks(resp.Choices[0].Message.Content)
}

// parseGeneratedTasks decodes the model output, tolerating a markdown code fence.
func parseGeneratedTasks(content string) ([]GeneratedTask, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var tasks []GeneratedTask
	if err := json.Unmarshal([]byte(content), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return tasks, nil
}
