// Package service holds the authorization-scoped task operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/recurrence"
	"taskmanager/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TaskStore is the persistence contract for tasks.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	ListAccessible(ctx context.Context, userID uuid.UUID) ([]model.Task, error)
	GetAccessible(ctx context.Context, id, userID uuid.UUID) (*model.Task, error)
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error)
	UpdateCompletion(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
	AddCollaborator(ctx context.Context, id, ownerID, userID uuid.UUID) (bool, error)
	RemoveCollaborator(ctx context.Context, id, userID uuid.UUID) error
}

// UserStore is the persistence contract for users and their task index.
type UserStore interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	AddTask(ctx context.Context, userID, taskID uuid.UUID) error
	RemoveTask(ctx context.Context, taskID uuid.UUID, userIDs ...uuid.UUID) error
	SetTaskIDs(ctx context.Context, userID uuid.UUID, taskIDs []uuid.UUID) error
}

// CreateTaskInput carries the fields accepted when creating a task.
type CreateTaskInput struct {
	Title     string `validate:"required"`
	Recurring bool
	Frequency model.Frequency
}

// DeleteOutcome tells whether Delete removed the task or only the caller's share.
type DeleteOutcome string

const (
	OutcomeDeleted  DeleteOutcome = "deleted"
	OutcomeUnshared DeleteOutcome = "unshared"
)

type TaskService struct {
	tasks    TaskStore
	users    UserStore
	validate *validator.Validate
	now      func() time.Time
	policy   recurrence.Policy
	logger   *slog.Logger
}

type Option func(*TaskService)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *TaskService) { s.logger = logger }
}

// WithRecurrencePolicy selects when updates advance a recurring task's due date.
func WithRecurrencePolicy(p recurrence.Policy) Option {
	return func(s *TaskService) { s.policy = p }
}

func NewTaskService(tasks TaskStore, users UserStore, opts ...Option) *TaskService {
	s := &TaskService{
		tasks:    tasks,
		users:    users,
		validate: validator.New(),
		now:      time.Now,
		policy:   recurrence.AdvanceOnEveryUpdate,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new task owned by callerID.
func (s *TaskService) Create(ctx context.Context, callerID uuid.UUID, in CreateTaskInput) (*model.Task, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	freq := in.Frequency
	if !freq.Valid() {
		freq = model.DefaultFrequency
	}

	task := &model.Task{
		ID:         uuid.New(),
		Title:      in.Title,
		UserID:     callerID,
		Recurring:  in.Recurring,
		Frequency:  freq,
		SharedWith: pq.StringArray{},
	}
	if task.Recurring {
		next := recurrence.Next(freq, s.now())
		task.NextDueDate = &next
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, storeErr(err)
	}

	if err := s.users.AddTask(ctx, callerID, task.ID); err != nil {
		s.logIndexDrift(ctx, "add task to owner index", task.ID, callerID, err)
	}

	return task, nil
}

// List returns every task callerID owns or collaborates on.
func (s *TaskService) List(ctx context.Context, callerID uuid.UUID) ([]model.Task, error) {
	tasks, err := s.tasks.ListAccessible(ctx, callerID)
	if err != nil {
		return nil, storeErr(err)
	}
	return tasks, nil
}

// Get returns a task visible to callerID. Tasks the caller cannot access are
// reported as not found.
func (s *TaskService) Get(ctx context.Context, callerID, taskID uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetAccessible(ctx, taskID, callerID)
	if err != nil {
		return nil, lookupErr(err)
	}
	return task, nil
}

// SetCompleted updates the completion flag. Owners and collaborators may call it.
func (s *TaskService) SetCompleted(ctx context.Context, callerID, taskID uuid.UUID, completed bool) (*model.Task, error) {
	task, err := s.tasks.GetAccessible(ctx, taskID, callerID)
	if err != nil {
		return nil, lookupErr(err)
	}

	wasCompleted := task.Completed
	task.Completed = completed
	s.advanceDueDate(task, wasCompleted)

	if err := s.tasks.UpdateCompletion(ctx, task); err != nil {
		return nil, lookupErr(err)
	}
	return task, nil
}

// advanceDueDate is the single place where updates move a recurring task forward.
func (s *TaskService) advanceDueDate(task *model.Task, wasCompleted bool) {
	if !task.Recurring || !s.policy.ShouldAdvance(wasCompleted, task.Completed) {
		return
	}
	next := recurrence.Next(task.Frequency, s.now())
	task.NextDueDate = &next
}

// Delete removes the task when callerID owns it. A collaborator only removes
// itself from the task's collaborators.
func (s *TaskService) Delete(ctx context.Context, callerID, taskID uuid.UUID) (DeleteOutcome, error) {
	task, err := s.tasks.GetAccessible(ctx, taskID, callerID)
	if err != nil {
		return "", lookupErr(err)
	}

	if !task.IsOwner(callerID) {
		if err := s.tasks.RemoveCollaborator(ctx, taskID, callerID); err != nil {
			return "", lookupErr(err)
		}
		if err := s.users.RemoveTask(ctx, taskID, callerID); err != nil {
			s.logIndexDrift(ctx, "remove task from collaborator index", taskID, callerID, err)
		}
		return OutcomeUnshared, nil
	}

	if err := s.tasks.Delete(ctx, taskID, callerID); err != nil {
		return "", lookupErr(err)
	}

	holders := []uuid.UUID{callerID}
	for _, raw := range task.SharedWith {
		if id, err := uuid.Parse(raw); err == nil {
			holders = append(holders, id)
		}
	}
	if err := s.users.RemoveTask(ctx, taskID, holders...); err != nil {
		s.logIndexDrift(ctx, "remove task from user indexes", taskID, callerID, err)
	}
	return OutcomeDeleted, nil
}

// Share grants targetID collaborator access. Only the owner may share.
func (s *TaskService) Share(ctx context.Context, callerID, taskID, targetID uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetOwned(ctx, taskID, callerID)
	if err != nil {
		return nil, lookupErr(err)
	}

	if targetID == task.UserID {
		return nil, fmt.Errorf("%w: cannot share a task with its owner", ErrValidation)
	}
	if task.IsSharedWith(targetID) {
		return nil, ErrAlreadyShared
	}

	exists, err := s.users.Exists(ctx, targetID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	added, err := s.tasks.AddCollaborator(ctx, taskID, callerID, targetID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !added {
		return nil, ErrAlreadyShared
	}

	if err := s.users.AddTask(ctx, targetID, taskID); err != nil {
		s.logIndexDrift(ctx, "add task to collaborator index", taskID, targetID, err)
	}

	updated, err := s.tasks.GetOwned(ctx, taskID, callerID)
	if err != nil {
		return nil, lookupErr(err)
	}
	return updated, nil
}

// RebuildIndex recomputes userID's task index from the task records.
func (s *TaskService) RebuildIndex(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	tasks, err := s.tasks.ListAccessible(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	ids := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}

	if err := s.users.SetTaskIDs(ctx, userID, ids); err != nil {
		return nil, storeErr(err)
	}
	return ids, nil
}

func (s *TaskService) logIndexDrift(ctx context.Context, op string, taskID, userID uuid.UUID, err error) {
	s.logger.WarnContext(ctx, "user task index out of sync",
		slog.String("op", op),
		slog.String("task_id", taskID.String()),
		slog.String("user_id", userID.String()),
		slog.String("error", err.Error()),
	)
}

func lookupErr(err error) error {
	if errors.Is(err, repository.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return storeErr(err)
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStore, err)
}
