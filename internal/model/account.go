package model

import "time"

// AccountStatus is the accounts.status column.
type AccountStatus uint8

const (
	AccountStatusNormal AccountStatus = 1
	AccountStatusBanned AccountStatus = 2
)

// Account represents a player account stored in the database.
type Account struct {
	ID             uint32
	Login          string
	PasswordHash   string
	Status         AccountStatus
	Expansions     uint32
	Features       uint32
	ContentIDs     uint32
	TimeCreate     time.Time
	TimeLastModify time.Time
}

// IsNormal reports whether the account may log in.
func (a *Account) IsNormal() bool {
	return a.Status == AccountStatusNormal
}

// Entitlements are the expansion and feature bitmasks announced by the version response.
type Entitlements struct {
	Expansions uint32
	Features   uint32
}
