package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.agora/internal/lock"
	"uk.co.dudmesh.agora/internal/model"
	"uk.co.dudmesh.agora/internal/queue"
)

const (
	JobType      = "backup"
	RedirectPath = "/settings/export"
)

type Config interface {
	LockExpiry() time.Duration
	DataDirectory() string
	BackupRetention() time.Duration
}

type Store interface {
	CreateBackup(ctx context.Context, backup *model.Backup) error
	FetchBackup(ctx context.Context, id model.BackupID) (*model.Backup, error)
	ListBackups(ctx context.Context, userID model.UserID) ([]*model.Backup, error)
	ListBackupsBefore(ctx context.Context, t time.Time) ([]*model.Backup, error)
	MarkBackupProcessed(ctx context.Context, id model.BackupID, dumpFile string, size int64, at time.Time) error
	MarkBackupFailed(ctx context.Context, id model.BackupID, message string, at time.Time) error
	DeleteBackup(ctx context.Context, id model.BackupID) error
	FetchUser(ctx context.Context, id model.UserID) (*model.User, error)
	FetchAccount(ctx context.Context, id model.AccountID) (*model.Account, error)
}

type Policy interface {
	Create(ctx context.Context, user *model.User) error
}

type JobPayload struct {
	BackupID model.BackupID `json:"backup_id"`
}

type service struct {
	config   Config
	store    Store
	locker   lock.Locker
	policy   Policy
	producer queue.Producer
	now      func() time.Time
}

func New(config Config, store Store, locker lock.Locker, policy Policy, producer queue.Producer) *service {
	return &service{
		config:   config,
		store:    store,
		locker:   locker,
		policy:   policy,
		producer: producer,
		now:      time.Now,
	}
}

func LockKey(userID model.UserID) string {
	return "backup:" + string(userID)
}

// Create records a pending backup for user and queues the job that builds
// the archive. Only one request per user may be inside the lock at a time;
// a concurrent request fails with model.ErrorRaceCondition.
func (s *service) Create(ctx context.Context, user *model.User) (*model.ExportHandle, error) {
	if user == nil {
		exportRequests.WithLabelValues("not_permitted").Inc()
		return nil, model.ErrorNotPermitted
	}

	var backup *model.Backup
	err := lock.With(ctx, s.locker, LockKey(user.ID), s.config.LockExpiry(), func(ctx context.Context) error {
		if err := s.policy.Create(ctx, user); err != nil {
			return err
		}
		backup = &model.Backup{
			ID:        model.NewBackupID(),
			UserID:    user.ID,
			Status:    model.BackupStatusPending,
			CreatedAt: s.now().UTC(),
		}
		if err := s.store.CreateBackup(ctx, backup); err != nil {
			return fmt.Errorf("creating backup: %w", err)
		}
		return nil
	})
	switch {
	case errors.Is(err, lock.ErrLockBusy):
		exportRequests.WithLabelValues("race_condition").Inc()
		return nil, model.ErrorRaceCondition
	case errors.Is(err, model.ErrorNotAuthorized):
		exportRequests.WithLabelValues("not_authorized").Inc()
		return nil, err
	case err != nil:
		exportRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	job, err := queue.NewJob(JobType, JobPayload{BackupID: backup.ID})
	if err != nil {
		return nil, err
	}
	if err := s.producer.Enqueue(ctx, job); err != nil {
		exportRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("enqueueing backup %s: %w", backup.ID, err)
	}

	exportRequests.WithLabelValues("created").Inc()
	log.Infof("backup %s queued for user %s (job %s)", backup.ID, user.ID, job.ID)

	return &model.ExportHandle{Backup: backup, RedirectURL: RedirectPath}, nil
}

func (s *service) List(ctx context.Context, user *model.User) ([]*model.Backup, error) {
	if user == nil {
		return nil, model.ErrorNotPermitted
	}
	return s.store.ListBackups(ctx, user.ID)
}

// HandleJob is the queue.HandlerFunc for JobType.
func (s *service) HandleJob(ctx context.Context, job queue.Job) error {
	var payload JobPayload
	if err := job.Decode(&payload); err != nil {
		return err
	}
	return s.Perform(ctx, payload.BackupID)
}
