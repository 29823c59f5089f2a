package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/recurrence"
	"taskmanager/internal/service"
	"taskmanager/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	svc   *service.TaskService
	tasks *testutil.MemTaskStore
	users *testutil.MemUserStore
	clock *fakeClock

	alice, bob, carol uuid.UUID
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	f := &fixture{
		tasks: testutil.NewMemTaskStore(),
		clock: &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		alice: uuid.New(),
		bob:   uuid.New(),
		carol: uuid.New(),
	}
	f.users = testutil.NewMemUserStore(f.alice, f.bob, f.carol)

	base := []service.Option{
		service.WithClock(f.clock.Now),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	f.svc = service.NewTaskService(f.tasks, f.users, append(base, opts...)...)
	return f
}

func (f *fixture) create(t *testing.T, owner uuid.UUID, in service.CreateTaskInput) *model.Task {
	t.Helper()
	task, err := f.svc.Create(context.Background(), owner, in)
	require.NoError(t, err)
	return task
}

func TestCreate_NonRecurringHasNoDueDate(t *testing.T) {
	f := newFixture(t)

	for _, freq := range []model.Frequency{"", model.FrequencyDaily, model.FrequencyMonthly, "hourly"} {
		task := f.create(t, f.alice, service.CreateTaskInput{Title: "Water plants", Frequency: freq})

		assert.Nil(t, task.NextDueDate, "frequency %q", freq)
		assert.False(t, task.Recurring)
		assert.False(t, task.Completed)
		assert.Equal(t, f.alice, task.UserID)
	}
}

func TestCreate_RecurringDaily(t *testing.T) {
	f := newFixture(t)

	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Stand-up", Recurring: true, Frequency: model.FrequencyDaily})

	require.NotNil(t, task.NextDueDate)
	assert.Equal(t, f.clock.now.Add(24*time.Hour), *task.NextDueDate)
	assert.Equal(t, model.FrequencyDaily, task.Frequency)
}

func TestCreate_RecurringInvalidFrequencyDefaultsToWeekly(t *testing.T) {
	f := newFixture(t)

	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Review", Recurring: true, Frequency: "fortnightly"})

	assert.Equal(t, model.FrequencyWeekly, task.Frequency)
	require.NotNil(t, task.NextDueDate)
	assert.Equal(t, f.clock.now.Add(7*24*time.Hour), *task.NextDueDate)
}

func TestCreate_EmptyTitle(t *testing.T) {
	f := newFixture(t)

	task, err := f.svc.Create(context.Background(), f.alice, service.CreateTaskInput{Title: "", Recurring: true})

	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Nil(t, task)
	assert.Equal(t, 0, f.tasks.Count())
	assert.Empty(t, f.users.TaskIDs(f.alice))
}

func TestCreate_AddsToOwnerIndex(t *testing.T) {
	f := newFixture(t)

	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Pay rent"})

	assert.Equal(t, []uuid.UUID{task.ID}, f.users.TaskIDs(f.alice))
}

func TestCreate_IndexFailureDoesNotFailCreate(t *testing.T) {
	f := newFixture(t)
	f.users.IndexErr = errors.New("users collection unavailable")

	task, err := f.svc.Create(context.Background(), f.alice, service.CreateTaskInput{Title: "Pay rent"})

	require.NoError(t, err)
	_, stored := f.tasks.Find(task.ID)
	assert.True(t, stored)
	assert.Empty(t, f.users.TaskIDs(f.alice))
}

func TestCreate_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.tasks.CreateErr = errors.New("connection refused")

	_, err := f.svc.Create(context.Background(), f.alice, service.CreateTaskInput{Title: "Pay rent"})

	assert.ErrorIs(t, err, service.ErrStore)
}

func TestList_UnionOfOwnedAndShared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	own := f.create(t, f.alice, service.CreateTaskInput{Title: "Alice's"})
	shared := f.create(t, f.bob, service.CreateTaskInput{Title: "Bob's, shared"})
	f.create(t, f.bob, service.CreateTaskInput{Title: "Bob's, private"})
	f.create(t, f.carol, service.CreateTaskInput{Title: "Carol's"})

	_, err := f.svc.Share(ctx, f.bob, shared.ID, f.alice)
	require.NoError(t, err)

	tasks, err := f.svc.List(ctx, f.alice)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{own.ID, shared.ID}, ids)
}

func TestGet_NoAccessIsNotFound(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Secret"})

	_, err := f.svc.Get(context.Background(), f.carol, task.ID)

	assert.ErrorIs(t, err, service.ErrTaskNotFound)
}

func TestGet_OwnerAndCollaborator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Groceries"})
	_, err := f.svc.Share(ctx, f.alice, task.ID, f.bob)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	got, err = f.svc.Get(ctx, f.bob, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestSetCompleted_NonRecurringKeepsDueDateEmpty(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Laundry"})

	updated, err := f.svc.SetCompleted(context.Background(), f.alice, task.ID, true)

	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Nil(t, updated.NextDueDate)
	stored, _ := f.tasks.Find(task.ID)
	assert.True(t, stored.Completed)
}

func TestSetCompleted_NoAccess(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Laundry"})

	_, err := f.svc.SetCompleted(context.Background(), f.carol, task.ID, true)

	assert.ErrorIs(t, err, service.ErrTaskNotFound)
	stored, _ := f.tasks.Find(task.ID)
	assert.False(t, stored.Completed)
}

func TestSetCompleted_CollaboratorAdvancesRecurringOnEveryUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Gym", Recurring: true, Frequency: model.FrequencyDaily})
	_, err := f.svc.Share(ctx, f.alice, task.ID, f.bob)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	first, err := f.svc.SetCompleted(ctx, f.bob, task.ID, true)
	require.NoError(t, err)
	require.NotNil(t, first.NextDueDate)
	assert.Equal(t, f.clock.now.Add(24*time.Hour), *first.NextDueDate)

	// Задача уже выполнена, но дата все равно сдвигается
	f.clock.Advance(time.Hour)
	second, err := f.svc.SetCompleted(ctx, f.bob, task.ID, true)
	require.NoError(t, err)
	require.NotNil(t, second.NextDueDate)
	assert.Equal(t, f.clock.now.Add(24*time.Hour), *second.NextDueDate)
	assert.True(t, second.NextDueDate.After(*first.NextDueDate))

	stored, _ := f.tasks.Find(task.ID)
	assert.Equal(t, *second.NextDueDate, *stored.NextDueDate)
}

func TestSetCompleted_AdvanceOnCompletionPolicy(t *testing.T) {
	f := newFixture(t, service.WithRecurrencePolicy(recurrence.AdvanceOnCompletion))
	ctx := context.Background()
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Gym", Recurring: true, Frequency: model.FrequencyWeekly})
	created := *task.NextDueDate

	f.clock.Advance(time.Hour)
	first, err := f.svc.SetCompleted(ctx, f.alice, task.ID, true)
	require.NoError(t, err)
	assert.Equal(t, f.clock.now.Add(7*24*time.Hour), *first.NextDueDate)
	assert.NotEqual(t, created, *first.NextDueDate)

	f.clock.Advance(time.Hour)
	second, err := f.svc.SetCompleted(ctx, f.alice, task.ID, true)
	require.NoError(t, err)
	assert.Equal(t, *first.NextDueDate, *second.NextDueDate)
}

func TestDelete_OwnerDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Taxes"})
	_, err := f.svc.Share(ctx, f.alice, task.ID, f.bob)
	require.NoError(t, err)

	outcome, err := f.svc.Delete(ctx, f.alice, task.ID)

	require.NoError(t, err)
	assert.Equal(t, service.OutcomeDeleted, outcome)
	_, stored := f.tasks.Find(task.ID)
	assert.False(t, stored)
	assert.NotContains(t, f.users.TaskIDs(f.alice), task.ID)
	assert.NotContains(t, f.users.TaskIDs(f.bob), task.ID)
}

func TestDelete_CollaboratorUnshares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Taxes"})
	_, err := f.svc.Share(ctx, f.alice, task.ID, f.bob)
	require.NoError(t, err)

	outcome, err := f.svc.Delete(ctx, f.bob, task.ID)

	require.NoError(t, err)
	assert.Equal(t, service.OutcomeUnshared, outcome)
	stored, ok := f.tasks.Find(task.ID)
	require.True(t, ok)
	assert.False(t, stored.IsSharedWith(f.bob))
	assert.Contains(t, f.users.TaskIDs(f.alice), task.ID)
	assert.NotContains(t, f.users.TaskIDs(f.bob), task.ID)

	// После отказа от доступа задача больше не видна
	_, err = f.svc.Get(ctx, f.bob, task.ID)
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
}

func TestDelete_NoAccess(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Taxes"})

	_, err := f.svc.Delete(context.Background(), f.carol, task.ID)

	assert.ErrorIs(t, err, service.ErrTaskNotFound)
	assert.Equal(t, 1, f.tasks.Count())
}

func TestShare_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Trip"})

	shared, err := f.svc.Share(ctx, f.alice, task.ID, f.bob)
	require.NoError(t, err)
	assert.Equal(t, []string{f.bob.String()}, []string(shared.SharedWith))
	assert.Contains(t, f.users.TaskIDs(f.bob), task.ID)

	_, err = f.svc.Share(ctx, f.alice, task.ID, f.bob)
	assert.ErrorIs(t, err, service.ErrAlreadyShared)

	stored, _ := f.tasks.Find(task.ID)
	assert.Equal(t, []string{f.bob.String()}, []string(stored.SharedWith))
	assert.Equal(t, []uuid.UUID{task.ID}, f.users.TaskIDs(f.bob))
}

func TestShare_OnlyOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Trip"})
	_, err := f.svc.Share(ctx, f.alice, task.ID, f.bob)
	require.NoError(t, err)

	// Соавтор не может делиться задачей дальше
	_, err = f.svc.Share(ctx, f.bob, task.ID, f.carol)

	assert.ErrorIs(t, err, service.ErrTaskNotFound)
	stored, _ := f.tasks.Find(task.ID)
	assert.False(t, stored.IsSharedWith(f.carol))
}

func TestShare_UnknownTarget(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Trip"})

	_, err := f.svc.Share(context.Background(), f.alice, task.ID, uuid.New())

	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestShare_WithOwner(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.alice, service.CreateTaskInput{Title: "Trip"})

	_, err := f.svc.Share(context.Background(), f.alice, task.ID, f.alice)

	assert.ErrorIs(t, err, service.ErrValidation)
	stored, _ := f.tasks.Find(task.ID)
	assert.Empty(t, stored.SharedWith)
}

func TestRebuildIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own := f.create(t, f.alice, service.CreateTaskInput{Title: "Mine"})
	other := f.create(t, f.bob, service.CreateTaskInput{Title: "Bob's"})

	// Индекс рассинхронизирован: шаринг прошел, а запись в индекс - нет
	f.users.IndexErr = errors.New("write failed")
	_, err := f.svc.Share(ctx, f.bob, other.ID, f.alice)
	require.NoError(t, err)
	assert.NotContains(t, f.users.TaskIDs(f.alice), other.ID)

	f.users.IndexErr = nil
	ids, err := f.svc.RebuildIndex(ctx, f.alice)

	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{own.ID, other.ID}, ids)
	assert.ElementsMatch(t, []uuid.UUID{own.ID, other.ID}, f.users.TaskIDs(f.alice))
}
