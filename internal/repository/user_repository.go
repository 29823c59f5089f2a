package repository

import (
	"context"
	"errors"

	"taskmanager/internal/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	AddTask(ctx context.Context, userID, taskID uuid.UUID) error
	RemoveTask(ctx context.Context, taskID uuid.UUID, userIDs ...uuid.UUID) error
	SetTaskIDs(ctx context.Context, userID uuid.UUID, taskIDs []uuid.UUID) error
}

var _ UserRepositoryInterface = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.TaskIDs == nil {
		user.TaskIDs = pq.StringArray{}
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Exists reports whether a user with the given id is registered
func (r *UserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// AddTask appends taskID to the user's task index unless it is already there
func (r *UserRepository) AddTask(ctx context.Context, userID, taskID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND NOT (? = ANY(task_ids))", userID, taskID.String()).
		Update("task_ids", gorm.Expr("array_append(task_ids, ?)", taskID.String())).
		Error
}

// RemoveTask pulls taskID from the task index of every listed user
func (r *UserRepository) RemoveTask(ctx context.Context, taskID uuid.UUID, userIDs ...uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id IN ?", userIDs).
		Update("task_ids", gorm.Expr("array_remove(task_ids, ?)", taskID.String())).
		Error
}

// SetTaskIDs overwrites the user's task index
func (r *UserRepository) SetTaskIDs(ctx context.Context, userID uuid.UUID, taskIDs []uuid.UUID) error {
	ids := make(pq.StringArray, 0, len(taskIDs))
	for _, id := range taskIDs {
		ids = append(ids, id.String())
	}
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("task_ids", ids).
		Error
}
