package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"docflow/internal/document"
)

type rejectingMeter struct {
	noop.Meter
}

func (rejectingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return noop.Int64Counter{}, errors.New("counter rejected")
}

func TestInstrumentFailureIsLoggedAndRecordingStillWorks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m := newBatchMetrics(rejectingMeter{}, logger)
	m.recordOutcome(context.Background(), document.Approve, document.Success(1))
	m.recordClaim(context.Background(), document.StatusSubmitted, 2)

	out := buf.String()
	if !strings.Contains(out, "docflow.transition.outcomes") || !strings.Contains(out, "counter rejected") {
		t.Fatalf("expected instrument failure to be logged, got %q", out)
	}
	if strings.Contains(out, "docflow.claim.size") {
		t.Fatalf("only the failing instrument should be reported, got %q", out)
	}
}
