package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CorrelAid/application_uploader/models"
	"github.com/CorrelAid/application_uploader/validators"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSubmitter struct {
	outcome models.SubmissionOutcome
	got     []models.FormSubmission
}

func (s *stubSubmitter) Submit(ctx context.Context, sub models.FormSubmission) models.SubmissionOutcome {
	s.got = append(s.got, sub)
	return s.outcome
}

type stubVerifier struct{ err error }

func (v stubVerifier) Verify(ctx context.Context, token, ip string) error { return v.err }

func multipartRequest(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		fw, err := w.CreateFormFile("resume", "cv.pdf")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/apply", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(h *ApplyHandler, req *http.Request) (*httptest.ResponseRecorder, Response) {
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	var resp Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

var janeFields = map[string]string{"name": "Jane Doe", "email": "jane@example.com", "phone": "+1 555 123 4567"}

func TestApplySuccess(t *testing.T) {
	s := &stubSubmitter{outcome: models.SubmissionOutcome{ID: "abc", Success: true, Message: "Form submitted successfully!"}}
	h := NewApplyHandler(s, nil, 1<<20, nil)

	rec, resp := serve(h, multipartRequest(t, janeFields, []byte("%PDF-1.4 test")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Response{Status: "ok", Message: "Form submitted successfully!", ID: "abc"}, resp)
	require.Len(t, s.got, 1)
	assert.Equal(t, "Jane Doe", s.got[0].Name)
	assert.Equal(t, "+15551234567", s.got[0].Phone)
	require.NotNil(t, s.got[0].File)
	assert.Equal(t, []byte("%PDF-1.4 test"), s.got[0].File.Content)
}

func TestApplyWithoutFile(t *testing.T) {
	s := &stubSubmitter{outcome: models.SubmissionOutcome{ID: "abc", Success: true}}
	h := NewApplyHandler(s, nil, 1<<20, nil)

	rec, _ := serve(h, multipartRequest(t, janeFields, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, s.got, 1)
	assert.Nil(t, s.got[0].File)
}

func TestApplyValidationErrors(t *testing.T) {
	s := &stubSubmitter{}
	h := NewApplyHandler(s, nil, 1<<20, nil)

	rec, resp := serve(h, multipartRequest(t, map[string]string{"email": "not-an-email"}, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", resp.Status)
	var names []string
	for _, fe := range resp.FieldErrors {
		names = append(names, fe.Field)
	}
	assert.Equal(t, []string{"email", "name"}, names)
	assert.Empty(t, s.got)
}

func TestApplyFileTooLarge(t *testing.T) {
	s := &stubSubmitter{}
	h := NewApplyHandler(s, nil, 4, nil)

	rec, resp := serve(h, multipartRequest(t, janeFields, []byte("0123456789")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, resp.FieldErrors, 1)
	assert.Equal(t, "resume", resp.FieldErrors[0].Field)
	assert.Empty(t, s.got)
}

func TestApplyCaptchaRejected(t *testing.T) {
	s := &stubSubmitter{}
	h := NewApplyHandler(s, stubVerifier{err: validators.ErrTokenNotValid}, 1<<20, nil)

	rec, _ := serve(h, multipartRequest(t, janeFields, nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, s.got)
}

func TestApplySubmissionFailure(t *testing.T) {
	s := &stubSubmitter{outcome: models.SubmissionOutcome{
		ID:      "abc",
		Message: "Failed to submit the form. Please try again.",
		Err:     &models.SubmissionError{Sink: "submit", StatusCode: 500},
	}}
	h := NewApplyHandler(s, nil, 1<<20, nil)

	rec, resp := serve(h, multipartRequest(t, janeFields, nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, Response{Status: "error", Message: "Failed to submit the form. Please try again.", ID: "abc"}, resp)
}

func TestApplyCooldownIsBadRequest(t *testing.T) {
	verr := models.NewValidationError("email", "an application was submitted recently")
	s := &stubSubmitter{outcome: models.SubmissionOutcome{ID: "abc", Message: verr.Error(), Err: verr}}
	h := NewApplyHandler(s, nil, 1<<20, nil)

	rec, resp := serve(h, multipartRequest(t, janeFields, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, resp.FieldErrors, 1)
	assert.Equal(t, "email", resp.FieldErrors[0].Field)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(NewApplyHandler(&stubSubmitter{}, nil, 1, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
