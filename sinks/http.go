package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/CorrelAid/application_uploader/config"
	"github.com/CorrelAid/application_uploader/models"
)

// HTTPSink POSTs the payload as multipart/form-data or JSON.
type HTTPSink struct {
	name    string
	url     string
	format  string
	headers map[string]string
	client  *http.Client

	envelope bool
	status   string
	now      func() time.Time
}

func NewHTTPSink(d config.SinkConfig, client *http.Client) *HTTPSink {
	if client == nil {
		client = http.DefaultClient
	}
	format := d.Format
	if format == "" {
		format = config.FormatMultipart
	}
	return &HTTPSink{
		name:    d.Name,
		url:     d.URL,
		format:  format,
		headers: d.Headers,
		client:  client,

		envelope: d.Envelope,
		status:   d.Status,
		now:      time.Now,
	}
}

func (s *HTTPSink) Name() string { return s.name }

// Deliver sends one request. Any status outside 2xx is a failure.
func (s *HTTPSink) Deliver(ctx context.Context, payload models.Payload) error {
	body, contentType, err := s.encode(payload)
	if err != nil {
		return &models.SubmissionError{Sink: s.name, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return &models.SubmissionError{Sink: s.name, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &models.SubmissionError{Sink: s.name, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &models.SubmissionError{Sink: s.name, StatusCode: resp.StatusCode}
	}
	return nil
}

func (s *HTTPSink) encode(payload models.Payload) (io.Reader, string, error) {
	if s.format == config.FormatJSON {
		var body interface{} = payload
		if s.envelope {
			body = payload.Envelope(s.status, s.headers[config.CandidateEmailHeader], s.now())
		}
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range payload.Fields() {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
