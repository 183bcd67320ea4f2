package operations

import (
	"strings"
	"time"

	"github.com/CorrelAid/application_uploader/inits"
	"github.com/CorrelAid/application_uploader/models"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-memdb"
)

const recentlySubmitted = "an application for this email was submitted recently, try again later"

// Registry remembers recent applicants so the same email cannot submit twice
// within the cooldown window.
type Registry struct {
	db     *memdb.MemDB
	window time.Duration
	now    func() time.Time
	logger log.Logger
}

func NewRegistry(db *memdb.MemDB, window time.Duration, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Registry{
		db:     db,
		window: window,
		now:    time.Now,
		logger: log.With(logger, "component", "cooldown"),
	}
}

// Reserve records email for the cooldown window. It returns a
// ValidationError on the email field when a live reservation exists.
func (r *Registry) Reserve(email, name string) error {
	email = strings.TrimSpace(email)
	now := r.now()

	txn := r.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(inits.ApplicantTable, "id", email)
	if err != nil {
		return err
	}
	if existing != nil && existing.(*models.Applicant).Expiry.After(now) {
		level.Info(r.logger).Log("msg", "submission inside cooldown", "email", email)
		return models.NewValidationError("email", recentlySubmitted)
	}

	applicant := &models.Applicant{
		Email:  email,
		Name:   name,
		Time:   now,
		Expiry: now.Add(r.window),
	}
	if err := txn.Insert(inits.ApplicantTable, applicant); err != nil {
		return err
	}
	txn.Commit()

	level.Debug(r.logger).Log("msg", "reserved applicant", "email", email, "expiry", applicant.Expiry)
	return nil
}

// Release drops the reservation so a failed submission can be retried.
func (r *Registry) Release(email string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(inits.ApplicantTable, "id", strings.TrimSpace(email)); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Cleanup deletes expired reservations and returns how many were removed.
func (r *Registry) Cleanup() (int, error) {
	now := r.now()

	txn := r.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(inits.ApplicantTable, "id")
	if err != nil {
		return 0, err
	}
	var expired []*models.Applicant
	for obj := it.Next(); obj != nil; obj = it.Next() {
		applicant := obj.(*models.Applicant)
		if !applicant.Expiry.After(now) {
			expired = append(expired, applicant)
		}
	}
	for _, applicant := range expired {
		if err := txn.Delete(inits.ApplicantTable, applicant); err != nil {
			return 0, err
		}
		level.Debug(r.logger).Log("msg", "deleted expired applicant", "email", applicant.Email)
	}
	txn.Commit()
	return len(expired), nil
}

// Len reports the number of stored reservations, expired or not.
func (r *Registry) Len() int {
	txn := r.db.Txn(false)
	it, err := txn.Get(inits.ApplicantTable, "id")
	if err != nil {
		return 0
	}
	n := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		n++
	}
	return n
}
