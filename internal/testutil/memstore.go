// Package testutil provides in-memory stores for service and handler tests.
package testutil

import (
	"context"
	"slices"
	"sync"

	"taskmanager/internal/model"
	"taskmanager/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MemTaskStore keeps tasks in insertion order and hands out copies.
type MemTaskStore struct {
	mu    sync.Mutex
	tasks []model.Task

	// CreateErr, when set, is returned by Create and nothing is stored.
	CreateErr error
}

func NewMemTaskStore() *MemTaskStore {
	return &MemTaskStore{}
}

func cloneTask(t model.Task) model.Task {
	t.SharedWith = append(pq.StringArray{}, t.SharedWith...)
	if t.NextDueDate != nil {
		d := *t.NextDueDate
		t.NextDueDate = &d
	}
	return t
}

func (s *MemTaskStore) indexOf(id uuid.UUID) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *MemTaskStore) Create(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.tasks = append(s.tasks, cloneTask(*task))
	return nil
}

func (s *MemTaskStore) ListAccessible(_ context.Context, userID uuid.UUID) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.CanAccess(userID) {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (s *MemTaskStore) GetAccessible(_ context.Context, id, userID uuid.UUID) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 || !s.tasks[i].CanAccess(userID) {
		return nil, repository.ErrTaskNotFound
	}
	t := cloneTask(s.tasks[i])
	return &t, nil
}

func (s *MemTaskStore) GetOwned(_ context.Context, id, ownerID uuid.UUID) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 || s.tasks[i].UserID != ownerID {
		return nil, repository.ErrTaskNotFound
	}
	t := cloneTask(s.tasks[i])
	return &t, nil
}

func (s *MemTaskStore) UpdateCompletion(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(task.ID)
	if i < 0 {
		return repository.ErrTaskNotFound
	}
	updated := cloneTask(*task)
	s.tasks[i].Completed = updated.Completed
	s.tasks[i].NextDueDate = updated.NextDueDate
	return nil
}

func (s *MemTaskStore) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 || s.tasks[i].UserID != ownerID {
		return repository.ErrTaskNotFound
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	return nil
}

func (s *MemTaskStore) AddCollaborator(_ context.Context, id, ownerID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 || s.tasks[i].UserID != ownerID || s.tasks[i].IsSharedWith(userID) {
		return false, nil
	}
	s.tasks[i].SharedWith = append(s.tasks[i].SharedWith, userID.String())
	return true, nil
}

func (s *MemTaskStore) RemoveCollaborator(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 || !s.tasks[i].IsSharedWith(userID) {
		return repository.ErrTaskNotFound
	}
	s.tasks[i].SharedWith = slices.DeleteFunc(s.tasks[i].SharedWith, func(v string) bool {
		return v == userID.String()
	})
	return nil
}

// Count returns the number of stored tasks.
func (s *MemTaskStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Find returns a copy of the stored task regardless of ownership.
func (s *MemTaskStore) Find(id uuid.UUID) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Task{}, false
	}
	return cloneTask(s.tasks[i]), true
}

// MemUserStore tracks registered user ids and their task index.
type MemUserStore struct {
	mu    sync.Mutex
	index map[uuid.UUID][]uuid.UUID

	// IndexErr, when set, fails every index mutation.
	IndexErr error
}

func NewMemUserStore(userIDs ...uuid.UUID) *MemUserStore {
	s := &MemUserStore{index: make(map[uuid.UUID][]uuid.UUID)}
	for _, id := range userIDs {
		s.index[id] = []uuid.UUID{}
	}
	return s
}

func (s *MemUserStore) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok, nil
}

func (s *MemUserStore) AddTask(_ context.Context, userID, taskID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.IndexErr != nil {
		return s.IndexErr
	}
	ids, ok := s.index[userID]
	if !ok || slices.Contains(ids, taskID) {
		return nil
	}
	s.index[userID] = append(ids, taskID)
	return nil
}

func (s *MemUserStore) RemoveTask(_ context.Context, taskID uuid.UUID, userIDs ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.IndexErr != nil {
		return s.IndexErr
	}
	for _, userID := range userIDs {
		if ids, ok := s.index[userID]; ok {
			s.index[userID] = slices.DeleteFunc(ids, func(id uuid.UUID) bool { return id == taskID })
		}
	}
	return nil
}

func (s *MemUserStore) SetTaskIDs(_ context.Context, userID uuid.UUID, taskIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.IndexErr != nil {
		return s.IndexErr
	}
	if _, ok := s.index[userID]; ok {
		s.index[userID] = slices.Clone(taskIDs)
	}
	return nil
}

// TaskIDs returns the task index recorded for userID.
func (s *MemUserStore) TaskIDs(userID uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.index[userID])
}
