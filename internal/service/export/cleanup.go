package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/labstack/gommon/log"
	"github.com/robfig/cron/v3"
)

// Cleanup deletes backups older than the retention period together with
// their archives. It returns the number of backups removed.
func (s *service) Cleanup(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.config.BackupRetention())
	expired, err := s.store.ListBackupsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, backup := range expired {
		if backup.DumpFile != "" {
			path := filepath.Join(s.config.DataDirectory(), backup.DumpFile)
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return removed, fmt.Errorf("removing archive %s: %w", path, err)
			}
		}
		if err := s.store.DeleteBackup(ctx, backup.ID); err != nil {
			return removed, fmt.Errorf("deleting backup %s: %w", backup.ID, err)
		}
		removed++
	}
	return removed, nil
}

// ScheduleCleanup registers Cleanup on c at spec, e.g. "@daily".
func (s *service) ScheduleCleanup(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		removed, err := s.Cleanup(context.Background())
		if err != nil {
			log.Errorf("cleaning up backups: %+v", err)
			return
		}
		if removed > 0 {
			log.Infof("removed %d expired backups", removed)
		}
	})
}
