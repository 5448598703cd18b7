package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/deepchat/server/session"
	"gopkg.in/yaml.v3"
)

func testSession() session.Session {
	created := session.Timestamp{Time: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)}
	return session.Session{
		ID:        "s1",
		Title:     "周末计划",
		CreatedAt: created,
		UpdatedAt: created,
		Config:    map[string]any{"model": "deepseek-reasoner"},
		Messages: []session.Message{
			{Role: session.RoleUser, Content: "去哪玩?", Timestamp: "2025-03-01T09:30:01Z"},
			{Role: session.RoleAssistant, Content: "【深度思考】\n想想\n\n---\n\n去公园 <3"},
			{Role: session.RoleSystem, Content: "❌ API 调用失败: boom"},
		},
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"json", "json", false},
		{"jsonl", "jsonl", false},
		{"md", "md", false},
		{"markdown", "md", false},
		{"yaml", "yaml", false},
		{"yml", "yaml", false},
		{"xml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exporter, err := NewExporter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExporter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := exporter.Extension(); got != tt.wantExt {
				t.Errorf("Extension() = %q, want %q", got, tt.wantExt)
			}
		})
	}
}

func TestJSONExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(testSession(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if strings.Contains(buf.String(), `<`) {
		t.Error("HTML characters should not be escaped")
	}

	var doc document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.ID != "s1" || doc.Title != "周末计划" || len(doc.Messages) != 3 {
		t.Errorf("unexpected document: %+v", doc)
	}
	if doc.CreatedAt != "2025-03-01T09:30:00Z" {
		t.Errorf("created_at = %q", doc.CreatedAt)
	}
}

func TestJSONLExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONLExporter{}).Export(testSession(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	var first message
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if first.Role != "user" || first.Timestamp == "" {
		t.Errorf("unexpected first message: %+v", first)
	}
	if strings.Contains(lines[1], "timestamp") {
		t.Error("empty timestamp should be omitted")
	}
}

func TestYAMLExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(testSession(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var doc document
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if doc.Title != "周末计划" || len(doc.Messages) != 3 {
		t.Errorf("unexpected document: %+v", doc)
	}
	if doc.Messages[1].Content != testSession().Messages[1].Content {
		t.Errorf("multi-line content not preserved: %q", doc.Messages[1].Content)
	}
	if doc.Config["model"] != "deepseek-reasoner" {
		t.Errorf("config not exported: %v", doc.Config)
	}
}

func TestMarkdownExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(testSession(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# 周末计划\n",
		"**Messages:** 3",
		"**User:** (2025-03-01T09:30:01Z)\n\n去哪玩?",
		"**Assistant:**\n\n【深度思考】",
		"**System:**\n\n❌ API 调用失败: boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}
