package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/project-board-api/internal/models"
)

// SuggestedCard is a card proposed from free text.
type SuggestedCard struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    models.Priority `json:"priority"`
	Tags        []string        `json:"tags"`
	DueDate     *time.Time      `json:"due_date"`
}

// CardSuggester turns free text into card proposals.
type CardSuggester interface {
	SuggestCards(ctx context.Context, text string) ([]SuggestedCard, error)
}

type AIService struct {
	client *openai.Client
	model  string
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
	}
}

// SuggestCards asks the chat model to break text into kanban cards.
func (s *AIService) SuggestCards(ctx context.Context, text string) ([]SuggestedCard, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	currentTime := timeNow().Format("2006-01-02 15:04:05")
	prompt := fmt.Sprintf(`You turn meeting notes and plans into kanban cards.

Current time: %s

Text:
%s

Reply with a JSON array of cards:
[
  {
    "title": "short imperative title",
    "description": "details",
    "priority": "low | medium | high | urgent",
    "tags": ["short", "labels"],
    "due_date": "ISO8601 timestamp such as 2025-10-28T23:59:59Z, or null"
  }
]

Rules:
- Reply with [] when the text holds no actionable work
- Resolve relative dates ("tomorrow", "next week") against the current time
- Reply with JSON only`, currentTime, text)

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

	return parseSuggestedCards(resp.Choices[0].Message.Content)
}

// parseSuggestedCards decodes the model reply, tolerating a markdown fence.
func parseSuggestedCards(content string) ([]SuggestedCard, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var cards []SuggestedCard
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &cards); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}
	return cards, nil
}
