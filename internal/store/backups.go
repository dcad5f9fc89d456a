package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"uk.co.dudmesh.agora/internal/model"
)

func (s *Store) CreateBackup(ctx context.Context, backup *model.Backup) error {
	res, err := s.db.NamedExecContext(ctx, `insert into backups
		(id, user_id, status, dump_file, dump_file_size, error_message, created_at, processed_at)
		values(:id, :user_id, :status, :dump_file, :dump_file_size, :error_message, :created_at, :processed_at)`, backup)
	if err != nil {
		return fmt.Errorf("inserting backup: %w", err)
	}
	return expectOneRow(res)
}

func (s *Store) FetchBackup(ctx context.Context, id model.BackupID) (*model.Backup, error) {
	backup := &model.Backup{}
	err := s.db.GetContext(ctx, backup, `select * from backups where id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorBackupNotFound
		}
		return nil, fmt.Errorf("fetching backup: %w", err)
	}
	return backup, nil
}

func (s *Store) ListBackups(ctx context.Context, userID model.UserID) ([]*model.Backup, error) {
	backups := []*model.Backup{}
	err := s.db.SelectContext(ctx, &backups, `select * from backups where user_id = ? order by created_at desc`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	return backups, nil
}

func (s *Store) CountBackupsSince(ctx context.Context, userID model.UserID, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `select count(*) from backups where user_id = ? and created_at >= ?`, userID, since)
	if err != nil {
		return 0, fmt.Errorf("counting backups: %w", err)
	}
	return count, nil
}

// ListBackupsBefore returns backups created before t, oldest first.
func (s *Store) ListBackupsBefore(ctx context.Context, t time.Time) ([]*model.Backup, error) {
	backups := []*model.Backup{}
	err := s.db.SelectContext(ctx, &backups, `select * from backups where created_at < ? order by created_at`, t)
	if err != nil {
		return nil, fmt.Errorf("listing expired backups: %w", err)
	}
	return backups, nil
}

func (s *Store) MarkBackupProcessed(ctx context.Context, id model.BackupID, dumpFile string, size int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `update backups set status = ?, dump_file = ?, dump_file_size = ?, error_message = '', processed_at = ? where id = ?`,
		model.BackupStatusProcessed, dumpFile, size, at, id)
	if err != nil {
		return fmt.Errorf("marking backup processed: %w", err)
	}
	return backupUpdated(res)
}

func (s *Store) MarkBackupFailed(ctx context.Context, id model.BackupID, message string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `update backups set status = ?, error_message = ?, processed_at = ? where id = ?`,
		model.BackupStatusFailed, message, at, id)
	if err != nil {
		return fmt.Errorf("marking backup failed: %w", err)
	}
	return backupUpdated(res)
}

func (s *Store) DeleteBackup(ctx context.Context, id model.BackupID) error {
	res, err := s.db.ExecContext(ctx, `delete from backups where id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting backup: %w", err)
	}
	return backupUpdated(res)
}

func backupUpdated(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrorBackupNotFound
	}
	return nil
}
