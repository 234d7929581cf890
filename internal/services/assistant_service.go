package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yukikurage/taskpick-api/internal/constants"
	"github.com/yukikurage/taskpick-api/internal/metrics"
)

var (
	ErrNoUnresolvedTasks = errors.New("no unresolved tasks")
	ErrUpstream          = errors.New("assistant service failed")
)

// AssistantInstruction is the system prompt sent ahead of the task list.
const AssistantInstruction = `You help a user decide what to work on next.
From the tasks below, pick at most three that the user should do first, considering priority and age.
Answer with a JSON object and nothing else:
{"answerText": "<one or two sentences explaining the pick>", "pickedTasksArray": ["<task id>", ...]}
Only use ids from the task list.`

// AssistantRecorder receives the outcome of each pick.
type AssistantRecorder interface {
	RecordAssistant(outcome string, duration time.Duration)
}

// AssistantService picks tasks for a user through a Reasoner.
type AssistantService struct {
	tasks    *TaskService
	reasoner Reasoner
	timeout  time.Duration
	recorder AssistantRecorder
}

// NewAssistantService creates a new AssistantService. recorder may be nil.
func NewAssistantService(tasks *TaskService, reasoner Reasoner, timeout time.Duration, recorder AssistantRecorder) *AssistantService {
	if timeout <= 0 {
		timeout = constants.DefaultAssistantTimeout
	}
	return &AssistantService{
		tasks:    tasks,
		reasoner: reasoner,
		timeout:  timeout,
		recorder: recorder,
	}
}

// Pick asks the reasoner which of the user's unresolved tasks to do next.
// Every returned id is guaranteed to belong to one of those tasks.
func (s *AssistantService) Pick(ctx context.Context, userID string, conversation []Message) (*Pick, error) {
	unresolved, err := s.tasks.UnresolvedTasks(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.record(metrics.OutcomeNotFound, 0)
		}
		return nil, err
	}
	if len(unresolved) == 0 {
		s.record(metrics.OutcomeNotFound, 0)
		return nil, ErrNoUnresolvedTasks
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	pick, err := s.reasoner.Pick(ctx, PickRequest{
		Instruction: AssistantInstruction,
		Tasks:       unresolved,
		Messages:    conversation,
	})
	elapsed := time.Since(start)
	if err != nil {
		outcome := metrics.OutcomeUpstream
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.OutcomeTimeout
		}
		s.record(outcome, elapsed)
		slog.Warn("assistant pick failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	known := make(map[string]struct{}, len(unresolved))
	for _, t := range unresolved {
		known[t.ID] = struct{}{}
	}
	for _, id := range pick.PickedTasksArray {
		if _, ok := known[id]; !ok {
			s.record(metrics.OutcomeUpstream, elapsed)
			return nil, fmt.Errorf("%w: unknown task id %q", ErrUpstream, id)
		}
	}

	s.record(metrics.OutcomeSuccess, elapsed)
	return pick, nil
}

func (s *AssistantService) record(outcome string, d time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordAssistant(outcome, d)
	}
}
