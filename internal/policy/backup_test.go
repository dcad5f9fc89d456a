package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"uk.co.dudmesh.agora/internal/model"
)

type counterFunc func(userID model.UserID, since time.Time) (int, error)

func (f counterFunc) CountBackupsSince(ctx context.Context, userID model.UserID, since time.Time) (int, error) {
	return f(userID, since)
}

func TestBackupPolicy(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	user := &model.User{ID: "u1"}

	t.Run("no interval", func(t *testing.T) {
		assert := assert.New(t)
		calls := 0
		policy := NewBackupPolicy(counterFunc(func(model.UserID, time.Time) (int, error) {
			calls++
			return 5, nil
		}), 0)

		assert.NoError(policy.Create(ctx, user))
		assert.NoError(policy.Create(ctx, user))
		assert.Zero(calls)
		assert.ErrorIs(policy.Create(ctx, nil), model.ErrorNotAuthorized)
	})

	t.Run("daily interval", func(t *testing.T) {
		assert := assert.New(t)
		var gotSince time.Time
		count := 0
		policy := NewBackupPolicy(counterFunc(func(userID model.UserID, since time.Time) (int, error) {
			assert.Equal(model.UserID("u1"), userID)
			gotSince = since
			return count, nil
		}), 24*time.Hour)
		policy.now = func() time.Time { return now }

		assert.NoError(policy.Create(ctx, user))
		assert.Equal(now.Add(-24*time.Hour), gotSince)

		count = 1
		assert.ErrorIs(policy.Create(ctx, user), model.ErrorNotAuthorized)
		assert.ErrorIs(policy.Create(ctx, nil), model.ErrorNotAuthorized)
	})

	t.Run("counter failure", func(t *testing.T) {
		assert := assert.New(t)
		failure := errors.New("db down")
		failing := NewBackupPolicy(counterFunc(func(model.UserID, time.Time) (int, error) { return 0, failure }), time.Hour)
		err := failing.Create(ctx, user)
		assert.ErrorIs(err, failure)
		assert.NotErrorIs(err, model.ErrorNotAuthorized)
	})
}

func TestStaff(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(Staff(&model.User{Admin: true}))
	assert.NoError(Staff(&model.User{Moderator: true}))
	assert.ErrorIs(Staff(&model.User{}), model.ErrorNotAuthorized)
	assert.ErrorIs(Staff(nil), model.ErrorNotAuthorized)
}
