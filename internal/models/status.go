package models

import (
	"database/sql/driver"
	"fmt"
)

// SessionStatus is the lifecycle state of a restock session
type SessionStatus string

// Session statuses
const (
	SessionStatusDraft     SessionStatus = "draft"
	SessionStatusFinalized SessionStatus = "finalized"
)

// IsValid reports whether s is a known status
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusDraft, SessionStatusFinalized:
		return true
	default:
		return false
	}
}

func (s SessionStatus) String() string {
	return string(s)
}

// Value implements driver.Valuer
func (s SessionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan implements sql.Scanner
func (s *SessionStatus) Scan(src interface{}) error {
	var v string
	switch t := src.(type) {
	case string:
		v = t
	case []byte:
		v = string(t)
	default:
		return fmt.Errorf("cannot scan %T into SessionStatus", src)
	}

	status := SessionStatus(v)
	if !status.IsValid() {
		return fmt.Errorf("unknown session status: %q", v)
	}
	*s = status
	return nil
}
