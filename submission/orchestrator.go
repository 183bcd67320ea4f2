package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/CorrelAid/application_uploader/models"
	"github.com/CorrelAid/application_uploader/sinks"
	"github.com/CorrelAid/application_uploader/validators"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	SuccessMessage = "Form submitted successfully!"
	FailureMessage = "Failed to submit the form. Please try again."
)

var errNoSinks = errors.New("no sinks configured")

type Uploader interface {
	Upload(ctx context.Context, file models.File) (models.UploadResult, error)
}

// Reserver guards against repeated submissions from the same applicant.
type Reserver interface {
	Reserve(email, name string) error
	Release(email string) error
}

type Notifier interface {
	Notify(ctx context.Context, sub models.FormSubmission) error
}

// Orchestrator uploads the résumé and forwards the form to every sink.
type Orchestrator struct {
	uploader    Uploader
	sinks       []sinks.Sink
	logger      log.Logger
	cooldown    Reserver
	notifier    Notifier
	maxFileSize int64
	newID       func() string
}

type Option func(*Orchestrator)

func WithCooldown(r Reserver) Option {
	return func(o *Orchestrator) { o.cooldown = r }
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithMaxFileSize(n int64) Option {
	return func(o *Orchestrator) { o.maxFileSize = n }
}

func New(uploader Uploader, targets []sinks.Sink, logger log.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	o := &Orchestrator{
		uploader: uploader,
		sinks:    targets,
		logger:   log.With(logger, "component", "orchestrator"),
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit runs one submission end to end. It never panics or returns an
// error; failures are reported in the outcome and logged once.
func (o *Orchestrator) Submit(ctx context.Context, sub models.FormSubmission) (outcome models.SubmissionOutcome) {
	id := o.newID()
	logger := log.With(o.logger, "submission", id)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic during submission: %v", r)
			level.Error(logger).Log("msg", "submission failed", "err", err)
			outcome = models.SubmissionOutcome{ID: id, Message: FailureMessage, Err: err}
		}
	}()

	if err := validators.ValidateSubmission(sub, o.maxFileSize); err != nil {
		level.Info(logger).Log("msg", "submission rejected", "err", err)
		return models.SubmissionOutcome{ID: id, Message: err.Error(), Err: err}
	}

	if o.cooldown != nil {
		if err := o.cooldown.Reserve(sub.Email, sub.Name); err != nil {
			level.Info(logger).Log("msg", "submission rejected", "err", err)
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				return models.SubmissionOutcome{ID: id, Message: err.Error(), Err: err}
			}
			return models.SubmissionOutcome{ID: id, Message: FailureMessage, Err: err}
		}
	}

	if err := o.submit(ctx, sub); err != nil {
		level.Error(logger).Log("msg", "submission failed", "err", err)
		if o.cooldown != nil {
			if rerr := o.cooldown.Release(sub.Email); rerr != nil {
				level.Warn(logger).Log("msg", "releasing cooldown failed", "err", rerr)
			}
		}
		return models.SubmissionOutcome{ID: id, Message: FailureMessage, Err: err}
	}

	level.Info(logger).Log("msg", "submission delivered", "sinks", len(o.sinks), "resume", sub.File != nil)

	if o.notifier != nil {
		if err := o.notifier.Notify(ctx, sub); err != nil {
			level.Warn(logger).Log("msg", "confirmation mail failed", "err", err)
		}
	}
	return models.SubmissionOutcome{ID: id, Success: true, Message: SuccessMessage}
}

func (o *Orchestrator) submit(ctx context.Context, sub models.FormSubmission) error {
	payload := models.Payload{
		Name:  sub.Name,
		Email: sub.Email,
		Phone: sub.Phone,
	}
	if sub.File != nil {
		if o.uploader == nil {
			return &models.ConfigurationError{Reason: "a file was attached but no uploader is configured"}
		}
		res, err := o.uploader.Upload(ctx, *sub.File)
		if err != nil {
			return err
		}
		payload.ResumeURL = res.PublicURL
	}
	return o.Dispatch(ctx, payload)
}

// Dispatch delivers payload to every sink. With several sinks the requests
// run concurrently and the first failure cancels the rest.
func (o *Orchestrator) Dispatch(ctx context.Context, payload models.Payload) error {
	switch len(o.sinks) {
	case 0:
		return errNoSinks
	case 1:
		return deliver(ctx, o.sinks[0], payload)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range o.sinks {
		s := s
		g.Go(func() error {
			return deliver(gctx, s, payload)
		})
	}
	return g.Wait()
}

// deliver turns a panicking sink into a SubmissionError so it fails the
// aggregate like any other rejection.
func deliver(ctx context.Context, s sinks.Sink, payload models.Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &models.SubmissionError{Sink: s.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return s.Deliver(ctx, payload)
}
