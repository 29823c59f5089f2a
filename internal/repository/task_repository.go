package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmanager/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// accessibleTo limits a query to tasks owned by or shared with userID.
func accessibleTo(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(user_id = ? OR ? = ANY(shared_with))", userID, userID.String())
	}
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// ListAccessible returns every task owned by or shared with userID, oldest first
func (r *TaskRepository) ListAccessible(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).
		Scopes(accessibleTo(userID)).
		Order("created_at").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// GetAccessible retrieves a task visible to userID as owner or collaborator
func (r *TaskRepository) GetAccessible(ctx context.Context, id, userID uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).
		Scopes(accessibleTo(userID)).
		Where("id = ?", id).
		First(&task)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// GetOwned retrieves a task only if ownerID owns it
func (r *TaskRepository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).First(&task, "id = ? AND user_id = ?", id, ownerID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// UpdateCompletion persists the completion flag and next due date of a task.
// Sharing fields are left to the atomic collaborator updates below.
func (r *TaskRepository) UpdateCompletion(ctx context.Context, task *model.Task) error {
	result := r.db.WithContext(ctx).
		Model(task).
		Select("Completed", "NextDueDate", "UpdatedAt").
		Updates(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task owned by ownerID
func (r *TaskRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ? AND user_id = ?", id, ownerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// AddCollaborator appends userID to shared_with of a task owned by ownerID.
// It reports false when the user was already present or the task is not owned by ownerID.
func (r *TaskRepository) AddCollaborator(ctx context.Context, id, ownerID, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("id = ? AND user_id = ? AND NOT (? = ANY(shared_with))", id, ownerID, userID.String()).
		Update("shared_with", gorm.Expr("array_append(shared_with, ?)", userID.String()))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RemoveCollaborator drops userID from shared_with
func (r *TaskRepository) RemoveCollaborator(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("id = ? AND ? = ANY(shared_with)", id, userID.String()).
		Update("shared_with", gorm.Expr("array_remove(shared_with, ?)", userID.String()))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
