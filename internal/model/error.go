package model

import (
	"errors"
	"fmt"
)

var ErrorInvalidEmailOrPassword = errors.New("invalid email or password")
var ErrorUserNotFound = errors.New("user not found")
var ErrorAccountNotFound = errors.New("account not found")
var ErrorBackupNotFound = errors.New("backup not found")
var ErrorEmailDomainBlockNotFound = errors.New("email domain block not found")
var ErrorNotPermitted = errors.New("you must be signed in to do that")
var ErrorNotAuthorized = errors.New("not authorized")
var ErrorRaceCondition = errors.New("another request is already in progress")
var ErrorEmailDomainBlocked = errors.New("email domain is blocked")
var ErrorDuplicateEmailDomainBlock = errors.New("email domain is already blocked")
var ErrorInvalidDomain = errors.New("invalid domain")
var ErrorUsernameTaken = errors.New("username is already taken")
var ErrorEmailTaken = errors.New("email is already registered")

type UnknownFilterKeyError struct {
	Key string
}

func (e *UnknownFilterKeyError) Error() string {
	return fmt.Sprintf("unknown filter: %s", e.Key)
}
