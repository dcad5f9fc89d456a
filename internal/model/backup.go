package model

import "time"

type BackupID string

type BackupStatus int

const (
	BackupStatusPending BackupStatus = iota
	BackupStatusProcessed
	BackupStatusFailed
)

type Backup struct {
	ID           BackupID     `db:"id" json:"id"`
	UserID       UserID       `db:"user_id" json:"userId"`
	Status       BackupStatus `db:"status" json:"status"`
	DumpFile     string       `db:"dump_file" json:"dumpFile,omitempty"`
	DumpFileSize int64        `db:"dump_file_size" json:"dumpFileSize"`
	ErrorMessage string       `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	ProcessedAt  *time.Time   `db:"processed_at" json:"processedAt,omitempty"`
}

// ExportHandle is what the caller of an export request gets back: the backup
// that was created and where to go to watch it.
type ExportHandle struct {
	Backup      *Backup `json:"backup"`
	RedirectURL string  `json:"redirectUrl"`
}
