package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestInit_WritesJSONToFileAndConsole(t *testing.T) {
	restoreDefault(t)
	dir := t.TempDir()
	var console bytes.Buffer

	closeFn, err := Init(Config{DataDir: dir, Console: &console})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Info("hello", "sessionId", "s1")
	slog.Debug("hidden")
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(console.Bytes(), &record); err != nil {
		t.Fatalf("console output is not a single JSON record: %v\n%s", err, console.String())
	}
	if record["msg"] != "hello" || record["sessionId"] != "s1" {
		t.Errorf("unexpected record: %v", record)
	}

	data, err := os.ReadFile(filepath.Join(dir, "logs", "server.log"))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !bytes.Equal(data, console.Bytes()) {
		t.Errorf("file and console differ:\nfile: %s\nconsole: %s", data, console.Bytes())
	}
}

func TestInit_VerboseDevMode(t *testing.T) {
	restoreDefault(t)
	var console bytes.Buffer

	if _, err := Init(Config{DevMode: true, Verbose: true, Console: &console}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Debug("details", "connId", "c1")

	out := console.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "connId=c1") {
		t.Errorf("expected text debug record, got %q", out)
	}
}
