package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/CorrelAid/application_uploader/models"
	"github.com/CorrelAid/application_uploader/validators"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type Submitter interface {
	Submit(ctx context.Context, sub models.FormSubmission) models.SubmissionOutcome
}

type Verifier interface {
	Verify(ctx context.Context, token, ip string) error
}

type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type Response struct {
	Status      string       `json:"status"`
	Message     string       `json:"message,omitempty"`
	ID          string       `json:"id,omitempty"`
	FieldErrors []FieldError `json:"field_errors,omitempty"`
}

// ApplyHandler serves the application form endpoint.
type ApplyHandler struct {
	submitter   Submitter
	verifier    Verifier
	maxFileSize int64
	logger      log.Logger
}

func NewApplyHandler(submitter Submitter, verifier Verifier, maxFileSize int64, logger log.Logger) *ApplyHandler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &ApplyHandler{
		submitter:   submitter,
		verifier:    verifier,
		maxFileSize: maxFileSize,
		logger:      log.With(logger, "component", "apply"),
	}
}

func (h *ApplyHandler) Apply(c *gin.Context) {
	var formData models.FormData
	if err := c.ShouldBind(&formData); err != nil {
		level.Info(h.logger).Log("msg", "binding form failed", "err", err)
		c.JSON(http.StatusBadRequest, Response{Status: "error", Message: "invalid form: " + err.Error()})
		return
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(c.Request.Context(), formData.TurnstileToken, c.ClientIP()); err != nil {
			c.JSON(http.StatusForbidden, Response{Status: "error", Message: "captcha verification failed"})
			return
		}
	}

	sub, err := validators.ValidateProcessFormData(formData, h.maxFileSize)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, validationResponse(verr))
			return
		}
		level.Error(h.logger).Log("msg", "reading form failed", "err", err)
		c.JSON(http.StatusBadRequest, Response{Status: "error", Message: "could not read the uploaded file"})
		return
	}

	outcome := h.submitter.Submit(c.Request.Context(), sub)
	if outcome.Success {
		c.JSON(http.StatusOK, Response{Status: "ok", Message: outcome.Message, ID: outcome.ID})
		return
	}

	var verr *models.ValidationError
	if errors.As(outcome.Err, &verr) {
		resp := validationResponse(verr)
		resp.ID = outcome.ID
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	c.JSON(http.StatusBadGateway, Response{Status: "error", Message: outcome.Message, ID: outcome.ID})
}

func validationResponse(verr *models.ValidationError) Response {
	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]FieldError, 0, len(names))
	for _, name := range names {
		fields = append(fields, FieldError{Field: name, Error: verr.Fields[name]})
	}
	return Response{Status: "error", Message: verr.Error(), FieldErrors: fields}
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
