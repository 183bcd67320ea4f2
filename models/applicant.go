package models

import "time"

// Applicant is a cooldown reservation held in memdb.
type Applicant struct {
	Email  string
	Name   string
	Time   time.Time
	Expiry time.Time
}
