package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/usermgmt/internal/jobs"
)

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsers) CountByActive(ctx context.Context, active bool) (int64, error) {
	args := m.Called(ctx, active)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsers) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func TestDailyReportHandler(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	users := new(mockUsers)
	users.On("CountAll", ctx).Return(int64(10), nil)
	users.On("CountByActive", ctx, true).Return(int64(7), nil)
	users.On("CountByActive", ctx, false).Return(int64(3), nil)
	users.On("CountCreatedSince", ctx, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)).Return(int64(2), nil)

	log, buf := bufferLogger()
	task, err := jobs.NewDailyReportTask(day)
	require.NoError(t, err)

	require.NoError(t, NewDailyReportHandler(users, log).ProcessTask(ctx, task))
	users.AssertExpectations(t)

	out := buf.String()
	assert.Contains(t, out, `"total_users":10`)
	assert.Contains(t, out, `"active_users":7`)
	assert.Contains(t, out, `"inactive_users":3`)
	assert.Contains(t, out, `"new_users_today":2`)
	assert.Contains(t, out, `"day":"2026-03-14"`)
}

func TestDailyReportHandler_ZeroDayUsesNow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)

	users := new(mockUsers)
	users.On("CountAll", ctx).Return(int64(1), nil)
	users.On("CountByActive", ctx, mock.Anything).Return(int64(0), nil)
	users.On("CountCreatedSince", ctx, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)).Return(int64(0), nil)

	log, _ := bufferLogger()
	h := NewDailyReportHandler(users, log)
	h.now = func() time.Time { return now }

	task, err := jobs.NewDailyReportTask(time.Time{})
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(ctx, task))
	users.AssertExpectations(t)
}

func TestDailyReportHandler_RepositoryError(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	users.On("CountAll", ctx).Return(int64(0), errors.New("db down"))

	log, _ := bufferLogger()
	task, err := jobs.NewDailyReportTask(time.Now())
	require.NoError(t, err)

	err = NewDailyReportHandler(users, log).ProcessTask(ctx, task)
	assert.ErrorContains(t, err, "db down")
}

func TestDailyReportHandler_BadPayloadSkipsRetry(t *testing.T) {
	log, _ := bufferLogger()
	task := asynq.NewTask(jobs.TaskTypeDailyReport, []byte("{"))

	err := NewDailyReportHandler(new(mockUsers), log).ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestCleanupInactiveHandler(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	users.On("CountByActive", ctx, false).Return(int64(4), nil)

	log, buf := bufferLogger()
	task, err := jobs.NewCleanupInactiveTask(true)
	require.NoError(t, err)

	require.NoError(t, NewCleanupInactiveHandler(users, log).ProcessTask(ctx, task))
	assert.Contains(t, buf.String(), `"inactive_users":4`)
	assert.Contains(t, buf.String(), `"dry_run":true`)
}

func TestBackupReminderHandler(t *testing.T) {
	log, buf := bufferLogger()

	require.NoError(t, NewBackupReminderHandler(log).ProcessTask(context.Background(), jobs.NewBackupReminderTask()))
	assert.Contains(t, buf.String(), jobs.TaskTypeBackupReminder)
}
