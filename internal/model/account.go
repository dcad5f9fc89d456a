package model

import "time"

type AccountID string

type SpamFlag int

const (
	SpamFlagNone SpamFlag = iota
	SpamFlagSafe
	SpamFlagSpam
)

type Account struct {
	ID          AccountID `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	Domain      *string   `db:"domain" json:"domain"`
	DisplayName string    `db:"display_name" json:"displayName"`
	Note        string    `db:"note" json:"note"`
	Suspended   bool      `db:"suspended" json:"suspended"`
	Silenced    bool      `db:"silenced" json:"silenced"`
	SpamFlag    SpamFlag  `db:"spam_flag" json:"spamFlag"`
	IsPro       bool      `db:"is_pro" json:"isPro"`
	IsInvestor  bool      `db:"is_investor" json:"isInvestor"`
	IsDonor     bool      `db:"is_donor" json:"isDonor"`
	IsVerified  bool      `db:"is_verified" json:"isVerified"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// IsLocal reports whether the account lives on this instance.
func (a *Account) IsLocal() bool {
	return a.Domain == nil
}

// Acct is the username for local accounts and username@domain for remote ones.
func (a *Account) Acct() string {
	if a.IsLocal() {
		return a.Username
	}
	return a.Username + "@" + *a.Domain
}

type AccountStat struct {
	AccountID     AccountID `db:"account_id" json:"accountId"`
	StatusesCount int64     `db:"statuses_count" json:"statusesCount"`
}

// AccountWithUser is a row of an admin account listing. User is nil for remote accounts.
type AccountWithUser struct {
	Account
	User *User `json:"user,omitempty"`
}
