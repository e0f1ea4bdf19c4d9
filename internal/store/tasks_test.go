package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/syndicate/internal/model"
)

func TestEnqueue_DefaultsNextRunToNow(t *testing.T) {
	s, _ := createTestStore(t)

	task, err := s.Enqueue(context.Background(), model.NewPropagateTask(model.DefaultPropagateURL, "r1"))
	require.NoError(t, err)
	assert.Positive(t, task.ID)
	assert.Zero(t, task.Attempts)
	assert.True(t, testNow.Equal(task.NextRunAt))
	assert.True(t, testNow.Equal(task.CreatedAt))
}

func TestEnqueue_RequiresQueueAndURL(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.Enqueue(context.Background(), model.Task{Queue: model.QueuePoll})
	assert.Error(t, err)
}

func TestListTasks_AllQueues(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, model.NewPropagateTask(model.DefaultPropagateURL, "r1"))
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, model.NewPollTask(model.DefaultPollURL, "1", model.Epoch))
	require.NoError(t, err)

	all, err := s.ListTasks(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.QueuePropagate, all[0].Queue)
	assert.Equal(t, model.QueuePoll, all[1].Queue)
}

func TestFetchReady_LeasesDueTasks(t *testing.T) {
	s, clock := createTestStore(t)
	ctx := context.Background()

	due, err := s.Enqueue(ctx, model.NewPropagateTask(model.DefaultPropagateURL, "r1"))
	require.NoError(t, err)
	later := model.NewPropagateTask(model.DefaultPropagateURL, "r2")
	later.NextRunAt = testNow.Add(time.Hour)
	_, err = s.Enqueue(ctx, later)
	require.NoError(t, err)

	leased, err := s.FetchReady(ctx, model.QueuePropagate, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, leased, 1)
	assert.Equal(t, due.ID, leased[0].ID)
	assert.True(t, testNow.Add(time.Minute).Equal(leased[0].NextRunAt))

	// Leased tasks are invisible until the lease runs out
	again, err := s.FetchReady(ctx, model.QueuePropagate, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)

	clock.advance(2 * time.Minute)
	again, err = s.FetchReady(ctx, model.QueuePropagate, 10, time.Minute)
	require.NoError(t, err)
	assert.Len(t, again, 1)
}

func TestFetchReady_RespectsLimitAndQueue(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"r1", "r2", "r3"} {
		_, err := s.Enqueue(ctx, model.NewPropagateTask(model.DefaultPropagateURL, key))
		require.NoError(t, err)
	}
	_, err := s.Enqueue(ctx, model.NewPollTask(model.DefaultPollURL, "1", model.Epoch))
	require.NoError(t, err)

	leased, err := s.FetchReady(ctx, model.QueuePropagate, 2, time.Minute)
	require.NoError(t, err)
	require.Len(t, leased, 2)
	assert.Equal(t, "r1", leased[0].Params[model.ParamResponseKey])
	assert.Equal(t, "r2", leased[1].Params[model.ParamResponseKey])

	none, err := s.FetchReady(ctx, model.QueuePropagate, 0, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCompleteTask(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, model.NewPropagateTask(model.DefaultPropagateURL, "r1"))
	require.NoError(t, err)
	leased, err := s.FetchReady(ctx, model.QueuePropagate, 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	// A stale lease does nothing
	require.NoError(t, s.CompleteTask(ctx, leased[0].ID, testNow))
	n, err := s.CountTasks(ctx, model.QueuePropagate)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.CompleteTask(ctx, leased[0].ID, leased[0].NextRunAt))
	n, err = s.CountTasks(ctx, model.QueuePropagate)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFailTask_Reschedules(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, model.NewPropagateTask(model.DefaultPropagateURL, "r1"))
	require.NoError(t, err)
	leased, err := s.FetchReady(ctx, model.QueuePropagate, 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	require.NoError(t, s.FailTask(ctx, leased[0].ID, leased[0].NextRunAt, 5*time.Minute))

	tasks, err := s.ListTasks(ctx, model.QueuePropagate)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 1, tasks[0].Attempts)
	assert.True(t, testNow.Add(5*time.Minute).Equal(tasks[0].NextRunAt))
}

func TestDeadLetterTask(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, model.NewPropagateTask(model.DefaultPropagateURL, "r1"))
	require.NoError(t, err)
	leased, err := s.FetchReady(ctx, model.QueuePropagate, 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	require.NoError(t, s.DeadLetterTask(ctx, leased[0], leased[0].NextRunAt, errors.New("boom")))

	n, err := s.CountTasks(ctx, model.QueuePropagate)
	require.NoError(t, err)
	assert.Zero(t, n)

	dead, err := s.ListDeadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, leased[0].ID, dead[0].ID)
	assert.Equal(t, "boom", dead[0].Error)
	assert.Equal(t, "r1", dead[0].Params[model.ParamResponseKey])
	assert.True(t, testNow.Equal(dead[0].FailedAt))
}

func TestDeadLetterTask_LostLease(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	task, err := s.Enqueue(ctx, model.NewPropagateTask(model.DefaultPropagateURL, "r1"))
	require.NoError(t, err)

	require.NoError(t, s.DeadLetterTask(ctx, task, testNow.Add(time.Hour), errors.New("boom")))

	dead, err := s.ListDeadTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, dead)
	n, err := s.CountTasks(ctx, model.QueuePropagate)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
