package model

import "time"

type EmailDomainBlockID string

type EmailDomainBlock struct {
	ID        EmailDomainBlockID `db:"id" json:"id"`
	Domain    string             `db:"domain" json:"domain"`
	CreatedAt time.Time          `db:"created_at" json:"createdAt"`
}
