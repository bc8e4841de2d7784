package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false, false))

	NewComponentLogger(logger, "lifecycle").Info("batch complete",
		Int(FieldBatchSize, 3),
		String(FieldActor, "APPROVE worker"),
	)

	line := buf.String()
	if !strings.Contains(line, " INFO lifecycle: batch complete") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "batch_size=3") {
		t.Fatalf("expected batch_size field, got %q", line)
	}
	if !strings.Contains(line, `actor="APPROVE worker"`) {
		t.Fatalf("expected quoted actor, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be rendered as prefix, got %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl, false, false))

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info line should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "WARN shown") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))
	logger.Info("created", Int64(FieldDocumentID, 42))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if payload[FieldDocumentID] != float64(42) {
		t.Fatalf("expected document_id 42, got %v", payload[FieldDocumentID])
	}
}

func TestWithContextAddsCorrelationAndActor(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, lvl, false, false))

	ctx := WithCorrelationID(context.Background(), "req-1")
	ctx = WithActor(ctx, "alice")
	WithContext(ctx, base).Info("hello")

	if !strings.Contains(buf.String(), "correlation_id=req-1") || !strings.Contains(buf.String(), "actor=alice") {
		t.Fatalf("expected context fields, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextAddsEventFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar), false, false))

	WarnWithContext(logger, "claim release failed", "claim_release_failed", Int(FieldBatchSize, 2))

	line := buf.String()
	if !strings.Contains(line, FieldEventType+"=claim_release_failed") {
		t.Fatalf("expected event type field, got %q", line)
	}
	if !strings.Contains(line, FieldErrorHint+"=") {
		t.Fatalf("expected default error hint, got %q", line)
	}
	if !strings.Contains(line, FieldBatchSize+"=2") {
		t.Fatalf("expected caller attrs to be kept, got %q", line)
	}
}
