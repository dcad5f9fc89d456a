package export

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.agora/internal/model"
)

// Perform builds the archive for a pending backup and records the outcome.
// Backups that are no longer pending are left alone.
func (s *service) Perform(ctx context.Context, id model.BackupID) error {
	backup, err := s.store.FetchBackup(ctx, id)
	if err != nil {
		return fmt.Errorf("loading backup %s: %w", id, err)
	}
	if backup.Status == model.BackupStatusProcessed {
		return nil
	}

	dumpFile, size, err := s.writeArchive(ctx, backup)
	if err != nil {
		backupsProcessed.WithLabelValues("failed").Inc()
		if markErr := s.store.MarkBackupFailed(context.WithoutCancel(ctx), id, err.Error(), s.now().UTC()); markErr != nil {
			log.Errorf("marking backup %s failed: %+v", id, markErr)
		}
		return fmt.Errorf("writing backup %s: %w", id, err)
	}

	if err := s.store.MarkBackupProcessed(ctx, id, dumpFile, size, s.now().UTC()); err != nil {
		return err
	}
	backupsProcessed.WithLabelValues("processed").Inc()
	log.Infof("backup %s written to %s (%d bytes)", id, dumpFile, size)
	return nil
}

// writeArchive returns the archive path relative to the data directory.
func (s *service) writeArchive(ctx context.Context, backup *model.Backup) (string, int64, error) {
	user, err := s.store.FetchUser(ctx, backup.UserID)
	if err != nil {
		return "", 0, fmt.Errorf("loading user: %w", err)
	}
	account, err := s.store.FetchAccount(ctx, user.AccountID)
	if err != nil {
		return "", 0, fmt.Errorf("loading account: %w", err)
	}

	dumpFile := filepath.Join("backups", string(user.ID), string(backup.ID)+".tar.gz")
	path := filepath.Join(s.config.DataDirectory(), dumpFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", 0, fmt.Errorf("creating backup directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("creating archive: %w", err)
	}

	err = writeEntries(f, backup.CreatedAt, []archiveEntry{
		{"account.json", account},
		{"user.json", user},
	})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("reading archive size: %w", err)
	}
	return dumpFile, info.Size(), nil
}

type archiveEntry struct {
	name  string
	value interface{}
}

func writeEntries(w io.Writer, modTime time.Time, entries []archiveEntry) error {
	gzw := gzip.NewWriter(w)
	tw := tar.NewWriter(gzw)

	for _, entry := range entries {
		name := entry.name
		data, err := json.MarshalIndent(entry.value, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling %s: %w", name, err)
		}
		header := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(data)),
			ModTime: modTime,
		}
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("writing %s header: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	return errors.Join(tw.Close(), gzw.Close())
}
