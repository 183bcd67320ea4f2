package sinks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/CorrelAid/application_uploader/config"
	"github.com/CorrelAid/application_uploader/models"
)

// Sink is an external destination for a submitted payload.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, payload models.Payload) error
}

// FromConfig builds one sink per descriptor. HTTP sinks share client.
func FromConfig(ctx context.Context, descriptors []config.SinkConfig, client *http.Client) ([]Sink, error) {
	out := make([]Sink, 0, len(descriptors))
	for _, d := range descriptors {
		switch d.Type {
		case config.SinkHTTP, "":
			out = append(out, NewHTTPSink(d, client))
		case config.SinkSheets:
			s, err := NewSheetsSink(ctx, d)
			if err != nil {
				return nil, fmt.Errorf("sink %s: %w", d.Name, err)
			}
			out = append(out, s)
		default:
			return nil, &models.ConfigurationError{Reason: fmt.Sprintf("sink %q has unknown type %q", d.Name, d.Type)}
		}
	}
	return out, nil
}
