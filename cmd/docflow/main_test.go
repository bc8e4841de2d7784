package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[logging]
level = "error"

[api]
bind = "127.0.0.1:0"
`, filepath.Join(base, "state"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func mustRunCLI(t *testing.T, configPath string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, configPath, args...)
	if err != nil {
		t.Fatalf("docflow %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestCLIDocumentLifecycle(t *testing.T) {
	cfg := writeTestConfig(t)

	out := mustRunCLI(t, cfg, "create", "--author", "Alice", "--title", "Budget")
	requireContains(t, out, "Created DOC-0000001 (id 1)")
	mustRunCLI(t, cfg, "create", "--author", "Bob", "--title", "Roadmap")

	out = mustRunCLI(t, cfg, "submit", "1,2", "99", "--initiator", "alice")
	requireContains(t, out, "3 processed: 2 success, 0 conflict, 1 not found, 0 errors")

	out = mustRunCLI(t, cfg, "--json", "approve", "1", "--initiator", "boss")
	var batch struct {
		Results []struct {
			ID     int64  `json:"id"`
			Result string `json:"result"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &batch); err != nil {
		t.Fatalf("decode approve output: %v\n%s", err, out)
	}
	if len(batch.Results) != 1 || batch.Results[0].Result != "success" {
		t.Fatalf("unexpected approve results: %+v", batch.Results)
	}

	out = mustRunCLI(t, cfg, "approve", "1")
	requireContains(t, out, "Expected SUBMITTED, got APPROVED")

	out = mustRunCLI(t, cfg, "approve", "42")
	requireContains(t, out, "1 processed: 0 success, 0 conflict, 1 not found, 0 errors")
	if _, err := runCLI(t, cfg, "approve", "2", "--initiator", " "); err == nil || !strings.Contains(err.Error(), "initiator must not be blank") {
		t.Fatalf("expected blank initiator to be rejected, got %v", err)
	}

	out = mustRunCLI(t, cfg, "history", "1")
	requireContains(t, out, "Submitted by alice")
	requireContains(t, out, "Approved by boss")

	out = mustRunCLI(t, cfg, "show", "1")
	requireContains(t, out, "Status:  APPROVED (version 2)")

	out = mustRunCLI(t, cfg, "stats")
	requireContains(t, out, "APPROVED")
	requireContains(t, out, "TOTAL")

	out = mustRunCLI(t, cfg, "search", "--author", "BOB", "--status", "submitted")
	requireContains(t, out, "Roadmap")
	requireContains(t, out, "(1 documents)")

	out = mustRunCLI(t, cfg, "list", "1", "2")
	requireContains(t, out, "Budget")
	requireContains(t, out, "Roadmap")

	if _, err := runCLI(t, cfg, "show", "42"); err == nil || !strings.Contains(err.Error(), "document 42 not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCLIClaimAndRace(t *testing.T) {
	cfg := writeTestConfig(t)
	for i := 0; i < 3; i++ {
		mustRunCLI(t, cfg, "create", "--author", "tester", "--title", fmt.Sprintf("Document #%d", i+1))
	}

	out := mustRunCLI(t, cfg, "claim", "draft", "--limit", "2")
	requireContains(t, out, "Claimed 2 DRAFT documents: 1 2")

	out = mustRunCLI(t, cfg, "claim", "DRAFT")
	requireContains(t, out, "Claimed 1 DRAFT documents: 3")

	mustRunCLI(t, cfg, "submit", "3")
	out = mustRunCLI(t, cfg, "--json", "race", "--id", "3", "--threads", "5", "--attempts", "10")
	var race struct {
		SuccessCount  int    `json:"successCount"`
		ConflictCount int    `json:"conflictCount"`
		FinalStatus   string `json:"finalStatus"`
	}
	if err := json.Unmarshal([]byte(out), &race); err != nil {
		t.Fatalf("decode race output: %v\n%s", err, out)
	}
	if race.SuccessCount != 1 || race.ConflictCount != 9 || race.FinalStatus != "APPROVED" {
		t.Fatalf("unexpected race report: %+v", race)
	}

	if _, err := runCLI(t, cfg, "race", "--id", "3", "--threads", "51"); err == nil {
		t.Fatal("expected validation error for too many threads")
	}
}

func TestCLIGenerate(t *testing.T) {
	cfg := writeTestConfig(t)
	var created atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		created.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	out := mustRunCLI(t, cfg, "generate", "--count", "7", "--url", srv.URL)
	requireContains(t, out, "Created 7 of 7 documents")
	if created.Load() != 7 {
		t.Fatalf("expected 7 requests, got %d", created.Load())
	}
}

func TestCLIDoctor(t *testing.T) {
	cfg := writeTestConfig(t)
	out := mustRunCLI(t, cfg, "doctor")
	requireContains(t, out, "State directory:")
	requireContains(t, out, "Store (sqlite):")
	requireContains(t, out, "Database integrity:")
}

func TestConfigInitAndValidate(t *testing.T) {
	cfg := writeTestConfig(t)

	out := mustRunCLI(t, cfg, "config", "validate")
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Store: sqlite")

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRunCLI(t, cfg, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, cfg, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	mustRunCLI(t, cfg, "config", "init", "--path", target, "--overwrite")
}

func TestCLILogsFiltersByDocument(t *testing.T) {
	cfgPath := writeTestConfig(t)
	ctx := newCommandContext(&cfgPath, nil)
	cfg, err := ctx.ensureConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	content := "INFO created document_id=1\nINFO created document_id=2\nINFO approved document_id=1\n"
	if err := os.WriteFile(cfg.LogFilePath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out := mustRunCLI(t, cfgPath, "logs", "--document", "1")
	if strings.Count(out, "document_id=1") != 2 || strings.Contains(out, "document_id=2") {
		t.Fatalf("unexpected logs output:\n%s", out)
	}
}
