package datatable

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlogTelemetryWritesSortedAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	telemetry := NewSlogTelemetry(logger)
	ctx := ContextWithSession(context.Background(), Session{User: User{Email: "ops@store.test"}})
	telemetry.Record(ctx, "datatable.sort", map[string]any{"table": "customers", "key": "spent"})
	assert.Equal(t, "level=INFO msg=datatable.sort user=ops@store.test key=spent table=customers\n", buf.String())
}

func TestNilTelemetryIsNoop(t *testing.T) {
	var telemetry *SlogTelemetry
	assert.NotPanics(t, func() {
		telemetry.Record(context.Background(), "x", nil)
		normalizeTelemetry(nil).Record(context.Background(), "x", nil)
	})
}
