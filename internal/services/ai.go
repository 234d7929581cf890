package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/taskpick-api/internal/constants"
	"github.com/yukikurage/taskpick-api/internal/models"
)

// ErrMalformedPick is returned when the reasoning service answers with anything
// other than {answerText, pickedTasksArray}.
var ErrMalformedPick = errors.New("malformed assistant response")

// Message is one turn of the caller supplied conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PickRequest is what a Reasoner gets to work with.
type PickRequest struct {
	Instruction string
	Tasks       []models.Task
	Messages    []Message
}

// Pick is the structured answer of a Reasoner.
type Pick struct {
	AnswerText       string   `json:"answerText"`
	PickedTasksArray []string `json:"pickedTasksArray"`
}

// Reasoner selects tasks for the user to work on next.
type Reasoner interface {
	Pick(ctx context.Context, req PickRequest) (*Pick, error)
}

// OpenAIReasoner asks an OpenAI compatible chat completion endpoint.
type OpenAIReasoner struct {
	client *openai.Client
	model  string
}

// NewOpenAIReasoner creates a reasoner. baseURL may be empty to use the public API.
func NewOpenAIReasoner(apiKey, model, baseURL string) *OpenAIReasoner {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIReasoner{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Pick sends the instruction and the tasks as the system message, followed by the conversation.
func (r *OpenAIReasoner) Pick(ctx context.Context, req PickRequest) (*Pick, error) {
	tasksJSON, err := json.Marshal(req.Tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tasks: %w", err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: fmt.Sprintf("%s\n\nTasks:\n%s", req.Instruction, tasksJSON),
	})
	for _, m := range req.Messages {
		role := m.Role
		if role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    messages,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return DecodePick(resp.Choices[0].Message.Content)
}

// DecodePick parses content strictly: both fields are required, nothing else is allowed
// and answerText must not be blank.
func DecodePick(content string) (*Pick, error) {
	var raw struct {
		AnswerText       *string   `json:"answerText"`
		PickedTasksArray *[]string `json:"pickedTasksArray"`
	}

	// Valid rejects trailing data after the object.
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("%w: not a single JSON value", ErrMalformedPick)
	}
	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPick, err)
	}

	switch {
	case raw.AnswerText == nil:
		return nil, fmt.Errorf("%w: answerText is missing", ErrMalformedPick)
	case raw.PickedTasksArray == nil:
		return nil, fmt.Errorf("%w: pickedTasksArray is missing", ErrMalformedPick)
	case strings.TrimSpace(*raw.AnswerText) == "":
		return nil, fmt.Errorf("%w: answerText is empty", ErrMalformedPick)
	}

	return &Pick{
		AnswerText:       *raw.AnswerText,
		PickedTasksArray: *raw.PickedTasksArray,
	}, nil
}

// MockAnswer is the fixed text returned by MockReasoner.
const MockAnswer = "These are the tasks worth your attention right now, most urgent first."

// MockReasoner answers deterministically after a fixed delay. It is used when
// no API key is configured and in tests.
type MockReasoner struct {
	delay time.Duration
}

// NewMockReasoner creates a MockReasoner that waits delay before answering.
func NewMockReasoner(delay time.Duration) *MockReasoner {
	return &MockReasoner{delay: delay}
}

// Pick returns up to three of the given tasks, ordered by priority.
func (r *MockReasoner) Pick(ctx context.Context, req PickRequest) (*Pick, error) {
	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	ordered := make([]models.Task, len(req.Tasks))
	copy(ordered, req.Tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority.Rank() < ordered[j].Priority.Rank()
	})

	picked := make([]string, 0, constants.MaxAssistantPicks)
	for _, t := range ordered {
		if len(picked) == constants.MaxAssistantPicks {
			break
		}
		picked = append(picked, t.ID)
	}

	return &Pick{AnswerText: MockAnswer, PickedTasksArray: picked}, nil
}
