package sinks

import (
	"context"

	"github.com/CorrelAid/application_uploader/config"
	"github.com/CorrelAid/application_uploader/models"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSink appends one row per submission to a Google spreadsheet.
type SheetsSink struct {
	name          string
	spreadsheetID string
	rng           string
	service       *sheets.Service
}

func NewSheetsSink(ctx context.Context, d config.SinkConfig, opts ...option.ClientOption) (*SheetsSink, error) {
	if d.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(d.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	rng := d.Range
	if rng == "" {
		rng = config.DefaultSheetsRange
	}
	return &SheetsSink{name: d.Name, spreadsheetID: d.SpreadsheetID, rng: rng, service: srv}, nil
}

func (s *SheetsSink) Name() string { return s.name }

func (s *SheetsSink) Deliver(ctx context.Context, payload models.Payload) error {
	row := &sheets.ValueRange{Values: [][]interface{}{payload.Row()}}
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.rng, row).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return &models.SubmissionError{Sink: s.name, Err: err}
	}
	return nil
}
