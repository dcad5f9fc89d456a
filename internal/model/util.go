package model

import (
	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
)

// CreateID returns a random uuid, base58 encoded.
func CreateID() string {
	id, _ := uuid.NewRandom()
	return base58.Encode(id[:])
}

func NewAccountID() AccountID {
	return AccountID(CreateID())
}

func NewUserID() UserID {
	return UserID(CreateID())
}

func NewBackupID() BackupID {
	return BackupID(CreateID())
}

func NewEmailDomainBlockID() EmailDomainBlockID {
	return EmailDomainBlockID(CreateID())
}
