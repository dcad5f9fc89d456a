package policy

import (
	"context"
	"fmt"
	"time"

	"uk.co.dudmesh.agora/internal/model"
)

type BackupCounter interface {
	CountBackupsSince(ctx context.Context, userID model.UserID, since time.Time) (int, error)
}

// BackupPolicy allows one backup per user per minInterval. A zero interval
// only requires a signed in user.
type BackupPolicy struct {
	backups     BackupCounter
	minInterval time.Duration
	now         func() time.Time
}

func NewBackupPolicy(backups BackupCounter, minInterval time.Duration) *BackupPolicy {
	return &BackupPolicy{backups: backups, minInterval: minInterval, now: time.Now}
}

// Create returns model.ErrorNotAuthorized when user may not request a backup.
func (p *BackupPolicy) Create(ctx context.Context, user *model.User) error {
	if user == nil {
		return model.ErrorNotAuthorized
	}
	if p.minInterval <= 0 {
		return nil
	}
	count, err := p.backups.CountBackupsSince(ctx, user.ID, p.now().UTC().Add(-p.minInterval))
	if err != nil {
		return fmt.Errorf("counting recent backups: %w", err)
	}
	if count > 0 {
		return model.ErrorNotAuthorized
	}
	return nil
}

// Staff returns model.ErrorNotAuthorized unless user is an admin or moderator.
func Staff(user *model.User) error {
	if user == nil || !user.IsStaff() {
		return model.ErrorNotAuthorized
	}
	return nil
}
