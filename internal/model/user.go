package model

import "time"

type UserID string

type CreateUserParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	ID              UserID     `db:"id" json:"id"`
	AccountID       AccountID  `db:"account_id" json:"accountId"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       *time.Time `db:"updated_at" json:"updatedAt"`
	Email           string     `db:"email" json:"email"`
	Password        string     `db:"password" json:"-"`
	Confirmed       bool       `db:"confirmed" json:"confirmed"`
	Approved        bool       `db:"approved" json:"approved"`
	Admin           bool       `db:"admin" json:"admin"`
	Moderator       bool       `db:"moderator" json:"moderator"`
	CurrentSignInIP *string    `db:"current_sign_in_ip" json:"currentSignInIp"`
	CurrentSignInAt *time.Time `db:"current_sign_in_at" json:"currentSignInAt"`
}

// IsStaff is true for admins and moderators.
func (u *User) IsStaff() bool {
	return u.Admin || u.Moderator
}
